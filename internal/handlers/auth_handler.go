package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradejournal/internal/middleware"
	"tradejournal/internal/models"
	"tradejournal/internal/services"
	"tradejournal/internal/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// AuthHandler handles registration, login, logout, and the current-user
// endpoint. Session identity travels in an HTTP-only cookie.
type AuthHandler struct {
	authService services.AuthService
	tokenTTL    time.Duration
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
		log:         log,
	}
}

// RegisterPublicRoutes registers the endpoints that need no session.
func (h *AuthHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/api/register", h.Register).Methods("POST")
	router.HandleFunc("/api/login", h.Login).Methods("POST")
	router.HandleFunc("/api/logout", h.Logout).Methods("POST")
}

// RegisterRoutes registers the endpoints behind the auth middleware.
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me", h.Me).Methods("GET")
}

// Register creates an account and logs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg := validateRegistration(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			writeError(w, http.StatusConflict, "A user with this email or username already exists")
			return
		}
		h.log.Error("register failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.issueSession(w, user) {
		return
	}
	writeData(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// Login authenticates by email or username and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Identifier and password are required")
		return
	}

	user, err := h.authService.Authenticate(req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.issueSession(w, user) {
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user models.User) bool {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		h.log.Error("token generation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func validateRegistration(req models.RegisterRequest) string {
	if req.Username != "" {
		if len(req.Username) < 3 || len(req.Username) > 32 {
			return "Username must be between 3 and 32 characters"
		}
		if !usernamePattern.MatchString(req.Username) {
			return "Username can only contain letters, numbers, dots, underscores, or dashes"
		}
	}
	if req.Email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "Email is invalid"
	}
	if len(req.Password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}
