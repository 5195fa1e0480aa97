package handlers

import (
	"net/http"
	"time"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/flow"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type openCheckoutRequest struct {
	HotelID       int64  `json:"hotelId"`
	RoomID        *int64 `json:"roomId,omitempty"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	Guests        int    `json:"guests"`
	Rooms         int    `json:"rooms"`
	PricePerNight int64  `json:"pricePerNight"`
}

// CheckoutOpen starts a booking flow. Unclaimed hotels are not bookable.
func (h *Handlers) CheckoutOpen(w http.ResponseWriter, r *http.Request) {
	var req openCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check-in date", "INVALID_INPUT")
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check-out date", "INVALID_INPUT")
		return
	}

	claimed, err := h.backend.ClaimStatus(r.Context(), req.HotelID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Claim status check failed", "error", err, "hotel_id", req.HotelID)
		writeError(w, http.StatusBadGateway, "Could not verify hotel availability", "UPSTREAM_ERROR")
		return
	}
	if !claimed {
		writeError(w, http.StatusConflict, "This hotel does not accept direct bookings", "HOTEL_NOT_BOOKABLE")
		return
	}

	id := uuid.NewString()
	c, err := flow.NewCheckout(id, clientID(r), domain.Stay{
		HotelID:  req.HotelID,
		RoomID:   req.RoomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   req.Guests,
		Rooms:    req.Rooms,
	}, req.PricePerNight, flow.CheckoutDeps{
		Backend:  h.backend,
		Gateway:  h.gateway,
		Mailer:   h.mailer,
		Sessions: h.sessions,
		Bus:      h.bus,
		Clock:    h.clock,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
		return
	}

	h.checkouts.Put(id, c)
	writeJSON(w, http.StatusCreated, c.Snapshot())
}

func (h *Handlers) checkout(w http.ResponseWriter, r *http.Request) (*flow.Checkout, bool) {
	id := chi.URLParam(r, "id")
	c, ok := h.checkouts.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Checkout flow not found", "NOT_FOUND")
		return nil, false
	}
	return c, true
}

func (h *Handlers) CheckoutGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handlers) CheckoutGuestInfo(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	var info domain.GuestInfo
	if err := decodeJSON(r, &info); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := c.SubmitGuestInfo(r.Context(), info); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handlers) CheckoutPayAtHotel(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	if err := c.SelectPayAtHotel(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handlers) CheckoutOnline(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	intent, err := c.StartOnline(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"intent":   intent,
		"snapshot": c.Snapshot(),
	})
}

type onlineConfirmRequest struct {
	PaymentRef string `json:"paymentRef"`
}

func (h *Handlers) CheckoutOnlineConfirm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	var req onlineConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := c.ConfirmOnline(r.Context(), req.PaymentRef); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c.Snapshot())
}

type onlineFailRequest struct {
	Detail string `json:"detail"`
}

func (h *Handlers) CheckoutOnlineFail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	var req onlineFailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := c.FailOnline(r.Context(), req.Detail); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handlers) CheckoutBack(w http.ResponseWriter, r *http.Request) {
	c, ok := h.checkout(w, r)
	if !ok {
		return
	}

	if err := c.Back(); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c.Snapshot())
}

// CheckoutAbandon discards the flow; an uncommitted draft leaves nothing
// behind.
func (h *Handlers) CheckoutAbandon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.checkouts.Remove(id) {
		writeError(w, http.StatusNotFound, "Checkout flow not found", "NOT_FOUND")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
