package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/schedule"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	// an unknown timezone never blocks registration; it falls back to UTC
	timezone := schedule.ResolveTimezone(req.Timezone)

	if _, err := s.storage.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "user already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Timezone:     timezone,
		CreatedAt:    time.Now(),
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.respondWithToken(w, r, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		slog.WarnContext(r.Context(), "Failed login attempt", "email", req.Email)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.respondWithToken(w, r, user, http.StatusOK)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, user core.User, status int) {
	token, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, status, authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.TokenDuration().Seconds()),
		User: userResponse{
			ID:       user.ID,
			Email:    user.Email,
			Timezone: user.Timezone,
		},
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.storage.GetUser(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:       user.ID,
		Email:    user.Email,
		Timezone: user.Timezone,
	})
}

type updateTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

func (s *Server) handleUpdateTimezone(w http.ResponseWriter, r *http.Request) {
	var req updateTimezoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// unlike registration, an explicit timezone update must name a real zone
	tz := strings.TrimSpace(req.Timezone)
	if schedule.ResolveTimezone(tz) != tz {
		writeError(w, http.StatusUnprocessableEntity, "unknown timezone: "+req.Timezone)
		return
	}

	if err := s.storage.UpdateUserTimezone(r.Context(), userID(r), tz); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.alertsCache.Delete(userID(r))
	writeJSON(w, http.StatusOK, map[string]string{"timezone": tz})
}
