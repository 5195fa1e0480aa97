package handlers

import (
	"net/http"
	"strconv"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// ReviewEligibility resolves whether the signed-in guest may review the
// hotel. Anonymous or failed lookups read as not eligible.
func (h *Handlers) ReviewEligibility(w http.ResponseWriter, r *http.Request) {
	hotelID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hotel ID", "INVALID_INPUT")
		return
	}

	var userID int64
	if cid := clientID(r); cid != "" {
		sess, err := h.sessions.Current(r.Context(), cid)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to load session", "error", err)
		} else if sess != nil {
			userID = sess.UserID
		}
	}

	writeJSON(w, http.StatusOK, h.gate.Check(r.Context(), hotelID, userID))
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	sess, err := h.sessions.Current(r.Context(), clientID(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session", "INTERNAL_ERROR")
		return nil, false
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Not signed in", "UNAUTHORIZED")
		return nil, false
	}
	return sess, true
}

func (h *Handlers) Wallet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	wallet, err := h.backend.UserWallet(r.Context(), sess.UserID)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	bookings, err := h.backend.UserBookings(r.Context(), sess.UserID)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (h *Handlers) Booking(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID", "INVALID_INPUT")
		return
	}

	booking, err := h.backend.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID", "INVALID_INPUT")
		return
	}

	if err := h.backend.CancelBooking(r.Context(), bookingID); err != nil {
		writeFlowError(w, err)
		return
	}

	if h.mailer != nil {
		ref := strconv.FormatInt(bookingID, 10)
		if err := h.mailer.SendCancellationNotice(sess.Email, sess.FullName(), ref); err != nil {
			logger.ErrorContext(r.Context(), "Failed to send cancellation notice", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
