// Package handlers exposes the workflow controller over HTTP. Flow instances
// live in uuid-keyed registries; clients carry the flow id between calls and
// a JWT identifies the signed-in client for session-backed endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/flow"
	"github.com/brightstay/stayflow/internal/gateway"
	"github.com/brightstay/stayflow/internal/mailer"
	"github.com/brightstay/stayflow/internal/review"
	"github.com/brightstay/stayflow/internal/session"
	"github.com/brightstay/stayflow/internal/validate"
	"github.com/brightstay/stayflow/pkg/auth"
	"github.com/brightstay/stayflow/pkg/config"
	"github.com/brightstay/stayflow/pkg/events"
)

type contextKey string

const clientIDCtxKey contextKey = "client_id"

type Handlers struct {
	config   *config.Config
	backend  *backend.Client
	sessions *session.Manager
	gate     *review.Gate
	gateway  gateway.Gateway
	mailer   mailer.Service
	bus      events.Publisher
	clock    clock.Clock

	verifications *flow.Registry[*flow.Verification]
	checkouts     *flow.Registry[*flow.Checkout]
}

func New(
	cfg *config.Config,
	bc *backend.Client,
	sessions *session.Manager,
	gate *review.Gate,
	gw gateway.Gateway,
	ml mailer.Service,
	bus events.Publisher,
	clk clock.Clock,
) *Handlers {
	return &Handlers{
		config:        cfg,
		backend:       bc,
		sessions:      sessions,
		gate:          gate,
		gateway:       gw,
		mailer:        ml,
		bus:           bus,
		clock:         clk,
		verifications: flow.NewRegistry[*flow.Verification](clk, cfg.Checkout.FlowTTL),
		checkouts:     flow.NewRegistry[*flow.Checkout](clk, cfg.Checkout.FlowTTL),
	}
}

// StartSweepers begins background eviction of expired flows.
func (h *Handlers) StartSweepers(ctx context.Context) {
	h.verifications.StartSweeper(ctx, h.config.Checkout.FlowTTL/4)
	h.checkouts.StartSweeper(ctx, h.config.Checkout.FlowTTL/4)
}

// RequireClient rejects requests without a valid client token.
func (h *Handlers) RequireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := h.clientIDFrom(r)
		if clientID == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), clientIDCtxKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalClient attaches the client id when a valid token is present and
// lets the request through either way.
func (h *Handlers) OptionalClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clientID := h.clientIDFrom(r); clientID != "" {
			ctx := context.WithValue(r.Context(), clientIDCtxKey, clientID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) clientIDFrom(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}

	claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.config.Auth.JWTSecret)
	if err != nil {
		return ""
	}
	return claims.ClientID
}

func clientID(r *http.Request) string {
	if v, ok := r.Context().Value(clientIDCtxKey).(string); ok {
		return v
	}
	return ""
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeFlowError maps flow, validation and backend failures onto the API
// error shape. Backend messages are passed through verbatim so the client can
// render them inline.
func writeFlowError(w http.ResponseWriter, err error) {
	var fieldErr *validate.FieldError
	if errors.As(err, &fieldErr) {
		writeError(w, http.StatusBadRequest, fieldErr.Error(), "VALIDATION_ERROR")
		return
	}

	if rf, ok := backend.IsRequestFailure(err); ok {
		status := rf.Status
		if status < 400 || status > 599 {
			status = http.StatusBadRequest
		}
		writeError(w, status, rf.Error(), "REQUEST_FAILED")
		return
	}

	switch {
	case errors.Is(err, flow.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_STATE")
	case errors.Is(err, flow.ErrOperationInFlight):
		writeError(w, http.StatusConflict, err.Error(), "OPERATION_IN_FLIGHT")
	case errors.Is(err, flow.ErrVerificationRequired):
		writeError(w, http.StatusForbidden, err.Error(), "EMAIL_VERIFICATION_REQUIRED")
	case errors.Is(err, flow.ErrResendUnavailable):
		writeError(w, http.StatusTooManyRequests, err.Error(), "RESEND_LOCKED")
	case errors.Is(err, flow.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, flow.ErrPaymentSelected), errors.Is(err, flow.ErrNoPaymentPending), errors.Is(err, flow.ErrPaymentMismatch):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_STATE")
	default:
		writeError(w, http.StatusBadGateway, "Upstream request failed", "UPSTREAM_ERROR")
	}
}
