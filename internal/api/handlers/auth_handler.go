package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	middleware "github.com/markdave123-py/AmityBot/internal/api/middlewares"
	"github.com/markdave123-py/AmityBot/internal/models"
	"github.com/markdave123-py/AmityBot/internal/services"
)

type Accounts interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

type AuthHandler struct {
	users  Accounts
	tokens TokenIssuer
	logger *slog.Logger
}

func NewAuthHandler(users Accounts, tokens TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string      `json:"message"`
	Role    models.Role `json:"role"`
	Token   string      `json:"token"`
}

// readCredentials accepts either a JSON body or form fields.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, err
		}
	} else {
		c.Username = r.FormValue("username")
		c.Password = r.FormValue("password")
	}
	if c.Username == "" || c.Password == "" {
		return c, errors.New("username and password are required")
	}
	return c, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), c.Username, c.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.respondWithToken(w, user, "Login successful")
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), c.Username, c.Password)
	if errors.Is(err, services.ErrUserExists) {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		h.logger.Error("register failed", "username", c.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.respondWithToken(w, user, "User registered")
}

// CheckSession reports the role the current request is served with.
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]models.Role{"role": middleware.RoleFrom(r.Context())})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user *models.User, message string) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("token issue failed", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, authResponse{Message: message, Role: user.Role, Token: token})
}
