package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/xleb321/chat-project/internal/platform/errors"
	"github.com/xleb321/chat-project/internal/platform/id"
	"github.com/xleb321/chat-project/internal/services/chat/storage"
	"github.com/xleb321/chat-project/internal/services/chat/token"
)

type addFriendRequest struct {
	FriendUsername string `json:"friendUsername"`
}

type friendsResponse struct {
	Friends []userView `json:"friends"`
}

type friendResponse struct {
	Friend userView `json:"friend"`
}

func (h *handler) handleFriends(w http.ResponseWriter, r *http.Request, identity token.Identity) {
	switch r.Method {
	case http.MethodGet:
		h.handleListFriends(w, r, identity)
	case http.MethodPost:
		h.handleAddFriend(w, r, identity)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleListFriends(w http.ResponseWriter, r *http.Request, identity token.Identity) {
	friends, err := h.store.ListFriends(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]userView, 0, len(friends))
	for _, friend := range friends {
		views = append(views, userView{ID: friend.ID, Username: friend.Username})
	}
	writeJSON(w, http.StatusOK, friendsResponse{Friends: views})
}

func (h *handler) handleAddFriend(w http.ResponseWriter, r *http.Request, identity token.Identity) {
	var req addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeUserNotFound, "User not found"))
		return
	}

	friend, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.FriendUsername))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeUserNotFound, "User not found"))
			return
		}
		writeError(w, err)
		return
	}
	if friend.ID == identity.ID {
		writeError(w, apperrors.New(apperrors.CodeFriendIsSelf, "Cannot add yourself"))
		return
	}

	if _, err := h.store.GetFriendship(r.Context(), identity.ID, friend.ID); err == nil {
		writeError(w, apperrors.New(apperrors.CodeFriendshipExists, "Already friends"))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeError(w, err)
		return
	}

	friendshipID, err := id.NewID()
	if err != nil {
		writeError(w, err)
		return
	}
	friendship := storage.Friendship{
		ID:        friendshipID,
		UserID:    identity.ID,
		FriendID:  friend.ID,
		Status:    storage.FriendshipStatusAccepted,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateFriendship(r.Context(), friendship); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, apperrors.New(apperrors.CodeFriendshipExists, "Already friends"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, friendResponse{
		Friend: userView{ID: friend.ID, Username: friend.Username},
	})
}
