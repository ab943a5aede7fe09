package user

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/user/entity"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest is the signup payload; password is plaintext.
type RegisterRequest struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email" validate:"required"`
	LoginID       string `json:"loginId" validate:"required"`
	Password      string `json:"password" validate:"required"`
	ContactNumber string `json:"contactNumber"`
}

// LoginRequest carries a handle (email or loginId) in Email.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	UserDetails entity.View `json:"userDetails"`
}

// ResetRequest carries the desired password. LoginID is optional and must
// match the path when sent.
type ResetRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password" validate:"required"`
}

// LogoutRequest names the account to log out.
type LogoutRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListAll(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entity.Views(users))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.FindByHandle(r.Context(), r.PathValue("handle"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.View())
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), entity.User{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		LoginID:       req.LoginID,
		Password:      req.Password,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.View())
}

// Forgot resets the password of the account in the path.
func (h *Handler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	current := entity.User{LoginID: r.PathValue("loginId")}
	if req.LoginID != "" && req.LoginID != current.LoginID {
		httpx.WriteError(w, r, h.logger, ErrLoginIDMismatch)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), current, entity.User{Password: req.Password}); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	sess, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Infow("login succeeded", "loginId", sess.User.LoginID)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:       sess.Token,
		ExpiresAt:   sess.ExpiresAt,
		UserDetails: sess.User.View(),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if !httpx.Decode(w, r, h.logger, &req) {
		return
	}
	if err := h.svc.Logout(r.Context(), req.Email); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
