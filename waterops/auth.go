package main

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

// guard rejects requests without a live session. Auth routes themselves
// are registered unguarded.
func (api *waterOpsAPI) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := api.sessions.Subject(r); !ok {
			httpserver.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func (api *waterOpsAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	username := strings.TrimSpace(req.Username)
	var detail []string
	if username == "" {
		detail = append(detail, "username is required")
	}
	if len(req.Password) < 8 {
		detail = append(detail, "password must be at least 8 characters")
	}
	if len(detail) > 0 {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed", detail)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.logger.Error("hash password", "error", err)
		httpserver.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	u := user{Username: username, PasswordHash: hash, CreatedAt: api.now().UTC()}
	if err := api.store.CreateUser(r.Context(), u); err == errUsernameTaken {
		httpserver.WriteError(w, http.StatusConflict, "Username already registered")
		return
	} else if err != nil {
		api.storageError(w, "create user", err)
		return
	}

	api.logger.Info("user registered", "username", username)
	httpserver.WriteData(w, http.StatusCreated, userResponse{Username: u.Username, CreatedAt: u.CreatedAt})
}

func (api *waterOpsAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	u, ok, err := api.store.GetUser(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		api.storageError(w, "get user", err)
		return
	}
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		httpserver.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	api.sessions.Start(w, u.Username)
	httpserver.WriteData(w, http.StatusOK, userResponse{Username: u.Username, CreatedAt: u.CreatedAt})
}

func (api *waterOpsAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	api.sessions.Clear(w, r)
	httpserver.WriteMessage(w, http.StatusOK, "Logged out")
}

func (api *waterOpsAPI) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	subject, ok := api.sessions.Subject(r)
	if !ok {
		httpserver.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	u, ok, err := api.store.GetUser(r.Context(), subject)
	if err != nil {
		api.storageError(w, "get user", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	httpserver.WriteData(w, http.StatusOK, userResponse{Username: u.Username, CreatedAt: u.CreatedAt})
}
