// Package sqlite provides a SQLite-backed chat storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/xleb321/chat-project/internal/platform/storage/sqlitemigrate"
	"github.com/xleb321/chat-project/internal/services/chat/storage"
	"github.com/xleb321/chat-project/internal/services/chat/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists chat state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite chat store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateUser inserts one account record.
func (s *Store) CreateUser(ctx context.Context, u storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID := strings.TrimSpace(u.ID)
	username := strings.TrimSpace(u.Username)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(u.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID,
		username,
		strings.TrimSpace(u.Email),
		u.PasswordHash,
		toMillis(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns one account record by id.
func (s *Store) GetUserByID(ctx context.Context, userID string) (storage.User, error) {
	return s.getUser(ctx, "id", userID)
}

// GetUserByUsername returns one account record by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *Store) getUser(ctx context.Context, column string, value string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return storage.User{}, fmt.Errorf("user %s is required", column)
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM users
		 WHERE `+column+` = ?`,
		value,
	)
	var u storage.User
	var createdAt int64
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("get user by %s: %w", column, err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// CreateFriendship inserts one directed friend relationship.
func (s *Store) CreateFriendship(ctx context.Context, f storage.Friendship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	friendshipID := strings.TrimSpace(f.ID)
	userID := strings.TrimSpace(f.UserID)
	friendID := strings.TrimSpace(f.FriendID)
	if friendshipID == "" {
		return fmt.Errorf("friendship id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if friendID == "" {
		return fmt.Errorf("friend id is required")
	}
	if userID == friendID {
		return fmt.Errorf("friend id must differ from user id")
	}
	status := strings.TrimSpace(f.Status)
	if status == "" {
		status = storage.FriendshipStatusAccepted
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO friendships (id, user_id, friend_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		friendshipID,
		userID,
		friendID,
		status,
		toMillis(f.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create friendship: %w", err)
	}
	return nil
}

// GetFriendship returns one directed friend relationship.
func (s *Store) GetFriendship(ctx context.Context, userID string, friendID string) (storage.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return storage.Friendship{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Friendship{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	friendID = strings.TrimSpace(friendID)
	if userID == "" {
		return storage.Friendship{}, fmt.Errorf("user id is required")
	}
	if friendID == "" {
		return storage.Friendship{}, fmt.Errorf("friend id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, friend_id, status, created_at
		 FROM friendships
		 WHERE user_id = ? AND friend_id = ?`,
		userID,
		friendID,
	)
	var f storage.Friendship
	var createdAt int64
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FriendID,
		&f.Status,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Friendship{}, storage.ErrNotFound
		}
		return storage.Friendship{}, fmt.Errorf("get friendship: %w", err)
	}
	f.CreatedAt = fromMillis(createdAt)
	return f, nil
}

// ListFriends returns the accepted friends of one user with their usernames.
func (s *Store) ListFriends(ctx context.Context, userID string) ([]storage.Friend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT u.id, u.username
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = ? AND f.status = ?
		 ORDER BY u.username ASC`,
		userID,
		storage.FriendshipStatusAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	friends := make([]storage.Friend, 0)
	for rows.Next() {
		var friend storage.Friend
		if err := rows.Scan(&friend.ID, &friend.Username); err != nil {
			return nil, fmt.Errorf("list friends: %w", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// AppendMessage inserts one immutable message record.
func (s *Store) AppendMessage(ctx context.Context, m storage.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	messageID := strings.TrimSpace(m.ID)
	fromUserID := strings.TrimSpace(m.FromUserID)
	toUserID := strings.TrimSpace(m.ToUserID)
	if messageID == "" {
		return fmt.Errorf("message id is required")
	}
	if fromUserID == "" {
		return fmt.Errorf("from user id is required")
	}
	if toUserID == "" {
		return fmt.Errorf("to user id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO messages (id, from_user_id, to_user_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		messageID,
		fromUserID,
		toUserID,
		m.Content,
		toMillis(m.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.FriendshipStore = (*Store)(nil)
var _ storage.MessageStore = (*Store)(nil)
