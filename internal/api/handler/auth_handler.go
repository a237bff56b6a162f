package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"librarian/internal/api/middleware"
	"librarian/internal/app/service"
	"librarian/internal/common"
	"librarian/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	authService *service.AuthService
	refreshTTL  time.Duration
	secure      bool
}

func NewAuthHandler(authService *service.AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, refreshTTL: refreshTTL, secure: secureCookies}
}

// RegisterRoutes mounts the public auth endpoints; logout additionally
// requires a valid access token and is mounted separately by the router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/refresh-token", h.refresh)
}

func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
}

type authResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *model.User `json:"user"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}

	result, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	common.RespondWithJSON(w, http.StatusCreated, "User registered successfully",
		authResponse{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	common.RespondWithJSON(w, http.StatusOK, "Login successful",
		authResponse{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		common.RespondWithJSON(w, http.StatusBadRequest, "Refresh token is required", nil)
		return
	}

	pair, err := h.authService.Rotate(r.Context(), cookie.Value)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	common.RespondWithJSON(w, http.StatusOK, "Token rotated successfully",
		map[string]string{"accessToken": pair.AccessToken})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		common.RespondWithError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	common.RespondWithJSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
