package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

const minPasswordLength = 6

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// MeResponse describes the authenticated account.
type MeResponse struct {
	User UserInfo `json:"user"`
}

// UserInfo is the public view of a user.
type UserInfo struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsOwner  bool   `json:"is_owner"`
}

// Register creates an account and returns a token. Owner rights come only
// from isOwner, never from the request.
func Register(users *storage.UserRepository, issuer *auth.Issuer, isOwner func(email string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var email, password, fullName string
		if err := decodeFields(r, map[string]any{
			"email":    &email,
			"password": &password,
			"fullname": &fullName,
		}); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		email = strings.TrimSpace(email)
		if email == "" || password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Email and password are required")
			return
		}
		if !validEmail(email) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid email address")
			return
		}
		if len(password) < minPasswordLength {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Password is too short")
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			writeInternal(w, "Failed to hash password")
			return
		}

		user := &models.User{
			Email:        email,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(fullName),
			IsOwner:      isOwner != nil && isOwner(email),
		}
		if err := users.Create(r.Context(), user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				middleware.WriteError(w, http.StatusConflict, "email_exists", "Email already registered")
				return
			}
			log.Printf("Failed to create user: %v", err)
			writeInternal(w, "Failed to create user")
			return
		}

		issueToken(w, issuer, user, http.StatusCreated)
	}
}

// Login verifies credentials and returns a token.
func Login(users *storage.UserRepository, issuer *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var email, password string
		if err := decodeFields(r, map[string]any{
			"email":    &email,
			"password": &password,
		}); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		user, err := users.GetByEmail(r.Context(), strings.TrimSpace(email))
		if err != nil {
			writeInternal(w, "Failed to load user")
			return
		}
		if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
			middleware.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}

		issueToken(w, issuer, user, http.StatusOK)
	}
}

// Me returns the caller's account.
func Me(users *storage.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFrom(r.Context())

		user, err := users.GetByEmail(r.Context(), claims.Email)
		if err != nil {
			writeInternal(w, "Failed to load user")
			return
		}
		if user == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
			return
		}

		middleware.WriteJSON(w, http.StatusOK, MeResponse{User: UserInfo{
			Email:    user.Email,
			FullName: user.FullName,
			IsOwner:  user.IsOwner,
		}})
	}
}

func issueToken(w http.ResponseWriter, issuer *auth.Issuer, user *models.User, status int) {
	token, err := issuer.Issue(user.Email, user.IsOwner)
	if err != nil {
		writeInternal(w, "Failed to issue token")
		return
	}
	middleware.WriteJSON(w, status, TokenResponse{Token: token})
}
