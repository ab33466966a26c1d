package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/validation"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db       *gorm.DB
	sessions *auth.Sessions
	log      zerolog.Logger
}

func NewAuthHandler(db *gorm.DB, sessions *auth.Sessions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, log: log}
}

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name,omitempty" validate:"max=255"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", map[string]string{"body": err.Error()})
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	if err := h.db.WithContext(r.Context()).Where("email = ?", in.Email).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	token := h.sessions.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", map[string]string{"body": err.Error()})
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if v := validation.Struct(in); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", v)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	user := models.User{
		Email:    in.Email,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(in.Name),
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
			return
		}
		h.log.Error().Err(err).Msg("signup failed")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_failure", nil)
		return
	}

	h.log.Info().Uint("user_id", user.ID).Msg("user signed up")
	token := h.sessions.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UserExists is the session verifier backed by the users table.
func (h *AuthHandler) UserExists(ctx context.Context, uid uint) bool {
	var n int64
	err := h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&n).Error
	return err == nil && n > 0
}
