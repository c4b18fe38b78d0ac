package authhttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sessiond/internal/lib/logger/sl"
	"sessiond/internal/services/auth"
)

// maxBodySize bounds request bodies; credential payloads are tiny.
const maxBodySize = 1 << 16

type Auth interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, username, password string, remember bool) (session, refreshToken string, err error)
	Refresh(ctx context.Context, refreshToken string) (session, newRefreshToken string, err error)
}

type Server struct {
	log  *slog.Logger
	auth Auth
}

func New(log *slog.Logger, auth Auth) *Server {
	return &Server{log: log, auth: auth}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"pw"`
}

type registerResponse struct {
	AccountID int64 `json:"account_id"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"pw"`
	Remember bool   `json:"remember"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokensResponse struct {
	Session      string `json:"session"`
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[registerRequest](w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and pw are required")
		return
	}

	id, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountExists) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		s.internalError(w, "register failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{AccountID: id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[loginRequest](w, r)
	if !ok {
		return
	}

	session, refreshToken, err := s.auth.Login(r.Context(), req.Username, req.Password, req.Remember)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		s.internalError(w, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, tokensResponse{Session: session, RefreshToken: refreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[refreshRequest](w, r)
	if !ok {
		return
	}

	session, refreshToken, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		s.internalError(w, "refresh failed", err)
		return
	}

	writeJSON(w, http.StatusOK, tokensResponse{Session: session, RefreshToken: refreshToken})
}

// internalError logs the cause and answers with a generic body so storage
// details never reach the client.
func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, sl.Err(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
