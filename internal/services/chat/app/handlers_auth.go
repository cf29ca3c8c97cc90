package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/xleb321/chat-project/internal/platform/errors"
	"github.com/xleb321/chat-project/internal/platform/id"
	"github.com/xleb321/chat-project/internal/services/chat/storage"
	"github.com/xleb321/chat-project/internal/services/chat/token"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("chat: encode response: %v", err)
	}
}

// writeError maps a domain error to its HTTP status and the user-facing
// message. Unexpected errors are logged and masked.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("chat: internal error: %v", err)
		domainErr = apperrors.New(apperrors.CodeUnknown, "Internal server error")
	}
	writeJSON(w, domainErr.Code.HTTPStatus(), errorResponse{Error: domainErr.Message})
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeUserEmptyUsername, "Invalid request body"))
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, apperrors.New(apperrors.CodeUserEmptyUsername, "Username is required"))
		return
	}
	if req.Password == "" {
		writeError(w, apperrors.New(apperrors.CodeUserEmptyPassword, "Password is required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := id.NewID()
	if err != nil {
		writeError(w, err)
		return
	}

	user := storage.User{
		ID:           userID,
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, apperrors.New(apperrors.CodeUsernameTaken, "Username already exists"))
			return
		}
		writeError(w, err)
		return
	}

	h.respondWithToken(w, token.Identity{ID: user.ID, Username: user.Username})
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidCredentials, "Invalid credentials"))
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Unknown user and wrong password are indistinguishable to the client.
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeInvalidCredentials, "Invalid credentials"))
			return
		}
		writeError(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidCredentials, "Invalid credentials"))
		return
	}

	h.respondWithToken(w, token.Identity{ID: user.ID, Username: user.Username})
}

func (h *handler) respondWithToken(w http.ResponseWriter, identity token.Identity) {
	credential, err := h.tokens.Issue(identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token: credential,
		User:  userView{ID: identity.ID, Username: identity.Username},
	})
}

// withIdentity enforces Bearer authentication on a REST route.
func (h *handler) withIdentity(next func(http.ResponseWriter, *http.Request, token.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.tokens.Verify(bearerCredential(r))
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "Unauthorized"))
			return
		}
		next(w, r, identity)
	}
}

func bearerCredential(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if value == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(value, prefix))
}
