// Package storage defines persistence contracts for chat service state.
package storage

import (
	"context"
	"time"

	"github.com/xleb321/chat-project/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a uniqueness constraint rejected the record.
var ErrAlreadyExists = errors.New(errors.CodeUsernameTaken, "record already exists")

// FriendshipStatusAccepted marks a friendship visible in friend listings.
const FriendshipStatusAccepted = "accepted"

// User stores one registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Friend is the public view of a user in a friend listing.
type Friend struct {
	ID       string
	Username string
}

// Friendship stores one directed friend relationship owned by UserID.
type Friendship struct {
	ID        string
	UserID    string
	FriendID  string
	Status    string
	CreatedAt time.Time
}

// Message is the durable, immutable record of one chat message.
type Message struct {
	ID         string
	FromUserID string
	ToUserID   string
	Content    string
	CreatedAt  time.Time
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByID(ctx context.Context, userID string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}

// FriendshipStore persists directed friend relationships.
type FriendshipStore interface {
	CreateFriendship(ctx context.Context, f Friendship) error
	GetFriendship(ctx context.Context, userID string, friendID string) (Friendship, error)
	ListFriends(ctx context.Context, userID string) ([]Friend, error)
}

// MessageStore appends durable message records. Records are never mutated or
// deleted once appended; an appended record must not be silently duplicated.
type MessageStore interface {
	AppendMessage(ctx context.Context, m Message) error
}
