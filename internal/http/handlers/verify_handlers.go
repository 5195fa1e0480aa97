package handlers

import (
	"net/http"

	"github.com/brightstay/stayflow/internal/flow"
	"github.com/brightstay/stayflow/pkg/logger"
)

// Email verification for an already signed-in account, opened inline when
// checkout refuses to advance past guest info. The address comes from the
// stored session, never from the request.

func (h *Handlers) VerifyStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current(r.Context(), clientID(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session", "INTERNAL_ERROR")
		return
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Not signed in", "UNAUTHORIZED")
		return
	}
	if sess.IsEmailVerified {
		writeError(w, http.StatusConflict, "Email is already verified", "ALREADY_VERIFIED")
		return
	}

	h.startVerification(w, r, flow.ModeEmailVerify, sess.Email, "")
}

func (h *Handlers) VerifySubmit(w http.ResponseWriter, r *http.Request) {
	var req flowCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeEmailVerify)
	if !ok {
		return
	}
	if err := v.SubmitCode(r.Context(), req.OTP); err != nil {
		writeFlowError(w, err)
		return
	}

	if err := h.sessions.MarkEmailVerified(r.Context(), clientID(r)); err != nil {
		logger.ErrorContext(r.Context(), "Failed to update session after verification", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update session", "INTERNAL_ERROR")
		return
	}

	h.verifications.Remove(req.FlowID)
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handlers) VerifyResend(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeEmailVerify)
	if !ok {
		return
	}
	if err := v.Resend(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}
