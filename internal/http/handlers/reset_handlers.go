package handlers

import (
	"net/http"

	"github.com/brightstay/stayflow/internal/flow"
)

// Password reset shares the verification machinery with signup; only the
// backend operations and the tail of the flow differ.

func (h *Handlers) ResetStart(w http.ResponseWriter, r *http.Request) {
	var req startVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	h.startVerification(w, r, flow.ModeReset, req.Email, req.FlowID)
}

func (h *Handlers) ResetVerify(w http.ResponseWriter, r *http.Request) {
	var req flowCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeReset)
	if !ok {
		return
	}
	if err := v.SubmitCode(r.Context(), req.OTP); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *Handlers) ResetResend(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeReset)
	if !ok {
		return
	}
	if err := v.Resend(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}

type resetCompleteRequest struct {
	FlowID          string `json:"flowId"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *Handlers) ResetComplete(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeReset)
	if !ok {
		return
	}
	if err := v.CompleteReset(r.Context(), req.NewPassword, req.ConfirmPassword); err != nil {
		writeFlowError(w, err)
		return
	}

	h.verifications.Remove(req.FlowID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
