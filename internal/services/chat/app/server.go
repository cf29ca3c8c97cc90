package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xleb321/chat-project/internal/platform/timeouts"
	"github.com/xleb321/chat-project/internal/services/chat/storage"
	chatsqlite "github.com/xleb321/chat-project/internal/services/chat/storage/sqlite"
	"github.com/xleb321/chat-project/internal/services/chat/token"
	"golang.org/x/net/websocket"
)

// Config defines the inputs for the chat service process.
type Config struct {
	HTTPAddr          string
	DBPath            string
	JWTSecret         string
	TokenTTL          time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the chat HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *chatsqlite.Store
}

// Store is the persistence surface the chat handler depends on.
type Store interface {
	storage.UserStore
	storage.FriendshipStore
	storage.MessageStore
}

// handler owns the shared state behind the HTTP routes: the token issuer,
// the persistence store, and the connection registry.
type handler struct {
	tokens    *token.Issuer
	store     Store
	registry  *registry
	router    *router
	wsHandler websocket.Handler
}

// NewHandler creates the chat routes on top of a token issuer and a store.
// It is the composition point used both by NewServer and by tests.
func NewHandler(tokens *token.Issuer, store Store) (http.Handler, error) {
	h, err := newChatHandler(tokens, store)
	if err != nil {
		return nil, err
	}
	return h.routes(), nil
}

func newChatHandler(tokens *token.Issuer, store Store) (*handler, error) {
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}

	reg := newRegistry()
	h := &handler{
		tokens:   tokens,
		store:    store,
		registry: reg,
		router:   newRouter(reg, store),
	}
	h.wsHandler = websocket.Handler(h.handleConn)
	return h, nil
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/friends", h.withIdentity(h.handleFriends))
	mux.HandleFunc("/ws", h.handleWSUpgrade)

	return withCORS(mux)
}

// withCORS allows browser clients from any origin, matching the permissive
// posture of the public chat frontend.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewServer builds a configured chat server with its SQLite store opened and
// migrations applied.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 30 * 24 * time.Hour
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	tokens, err := token.NewIssuer(config.JWTSecret, config.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	store, err := openChatStore(config.DBPath)
	if err != nil {
		return nil, err
	}

	routes, err := NewHandler(tokens, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init chat handler: %w", err)
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           routes,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
	}, nil
}

// Run creates and serves a chat server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init chat server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve chat: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("chat server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("chat server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close chat store: %v", err)
		}
	}
}

func openChatStore(path string) (*chatsqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "chat.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := chatsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chat sqlite store: %w", err)
	}
	return store, nil
}
