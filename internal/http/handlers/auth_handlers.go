package handlers

import (
	"net/http"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/internal/flow"
	"github.com/brightstay/stayflow/internal/validate"
	"github.com/brightstay/stayflow/pkg/auth"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/google/uuid"
)

type startVerificationRequest struct {
	FlowID string `json:"flowId,omitempty"`
	Email  string `json:"email"`
}

type flowCodeRequest struct {
	FlowID string `json:"flowId"`
	OTP    string `json:"otp"`
}

type flowRequest struct {
	FlowID string `json:"flowId"`
}

// startVerification opens (or re-drives, after a change-email) a
// verification flow in the given mode and submits the address.
func (h *Handlers) startVerification(w http.ResponseWriter, r *http.Request, mode flow.VerificationMode, email, flowID string) {
	created := false
	var v *flow.Verification

	if flowID != "" {
		existing, ok := h.verifications.Get(flowID)
		if !ok || existing.Mode() != mode {
			writeError(w, http.StatusNotFound, "Verification flow not found", "NOT_FOUND")
			return
		}
		v = existing
	} else {
		flowID = uuid.NewString()
		v = flow.NewVerification(mode, h.backend, h.bus, h.clock, h.config.Checkout.OTPResendWait)
		created = true
	}

	if err := v.SubmitEmail(r.Context(), email); err != nil {
		if created {
			v.Close()
		}
		writeFlowError(w, err)
		return
	}

	if created {
		h.verifications.Put(flowID, v)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"flowId":   flowID,
		"snapshot": v.Snapshot(),
	})
}

func (h *Handlers) verification(w http.ResponseWriter, flowID string, mode flow.VerificationMode) (*flow.Verification, bool) {
	v, ok := h.verifications.Get(flowID)
	if !ok || v.Mode() != mode {
		writeError(w, http.StatusNotFound, "Verification flow not found", "NOT_FOUND")
		return nil, false
	}
	return v, true
}

// --- Signup ---

func (h *Handlers) SignupStart(w http.ResponseWriter, r *http.Request) {
	var req startVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	h.startVerification(w, r, flow.ModeSignup, req.Email, req.FlowID)
}

func (h *Handlers) SignupVerify(w http.ResponseWriter, r *http.Request) {
	var req flowCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeSignup)
	if !ok {
		return
	}
	if err := v.SubmitCode(r.Context(), req.OTP); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *Handlers) SignupResend(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeSignup)
	if !ok {
		return
	}
	if err := v.Resend(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *Handlers) SignupChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeSignup)
	if !ok {
		return
	}
	if err := v.ChangeEmail(); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v.Snapshot())
}

type signupCompleteRequest struct {
	FlowID string `json:"flowId"`
	flow.SignupProfile
}

func (h *Handlers) SignupComplete(w http.ResponseWriter, r *http.Request) {
	var req signupCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	v, ok := h.verification(w, req.FlowID, flow.ModeSignup)
	if !ok {
		return
	}

	sess, err := v.CompleteSignup(r.Context(), req.SignupProfile)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	h.verifications.Remove(req.FlowID)
	h.issueSession(w, r, sess)
}

// --- Login / logout / me ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := validate.Check("email", validate.Email(req.Email)); err != nil {
		writeFlowError(w, err)
		return
	}
	if err := validate.Check("password", validate.Field(req.Password)); err != nil {
		writeFlowError(w, err)
		return
	}

	sess, err := h.backend.Login(r.Context(), validate.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	h.issueSession(w, r, sess)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context(), clientID(r)); err != nil {
		logger.ErrorContext(r.Context(), "Failed to clear session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": sess})
}

// issueSession stores the account snapshot under a fresh client id and hands
// the client its token.
func (h *Handlers) issueSession(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	cid := uuid.NewString()
	if err := h.sessions.SignIn(r.Context(), cid, sess); err != nil {
		logger.ErrorContext(r.Context(), "Failed to store session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session", "INTERNAL_ERROR")
		return
	}

	token, err := auth.NewClientToken(cid, sess.UserID, sess.Email, h.config.Auth.JWTSecret, h.config.Auth.ClientTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign client token", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  sess,
	})
}
