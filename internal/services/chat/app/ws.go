package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/xleb321/chat-project/internal/services/chat/token"
	"golang.org/x/net/websocket"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxDecodeErrorsPerConn = 3
)

type wsIdentityContextKey struct{}

func identityFromContext(ctx context.Context) (token.Identity, bool) {
	identity, ok := ctx.Value(wsIdentityContextKey{}).(token.Identity)
	return identity, ok
}

// handleWSUpgrade authenticates the connection upgrade before any registry
// mutation. A rejected credential closes the request with 401 and no
// structured body beyond the status text.
func (h *handler) handleWSUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	credential := r.URL.Query().Get("token")
	identity, err := h.tokens.Verify(credential)
	if err != nil {
		log.Printf("chat: websocket unauthorized: remote=%s path=%q", r.RemoteAddr, r.URL.Path)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ctx := context.WithValue(r.Context(), wsIdentityContextKey{}, identity)
	h.wsHandler.ServeHTTP(w, r.WithContext(ctx))
}

// handleConn drives one connection's lifetime: register, relay inbound
// frames in arrival order, deregister on close from either end.
func (h *handler) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	request := conn.Request()
	if request == nil {
		return
	}
	identity, ok := identityFromContext(request.Context())
	if !ok {
		return
	}

	peer := newWSPeer(conn)
	h.registry.register(identity, peer)
	defer h.registry.deregister(identity.ID, peer)

	log.Printf("chat: user %s connected", identity.Username)
	defer log.Printf("chat: user %s disconnected", identity.Username)

	decoder := json.NewDecoder(conn)
	decodeErrors := 0

	for {
		var frame inboundFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.To)+len(frame.Content) > maxFramePayloadBytes {
			log.Printf("chat: user %s sent an oversized frame (%d bytes), closing", identity.Username, len(frame.To)+len(frame.Content))
			return
		}

		switch frame.Type {
		case frameTypeMessage:
			if _, err := h.router.route(identity, frame.To, frame.Content); err != nil {
				log.Printf("chat: route message from=%s: %v", identity.ID, err)
			}
		default:
			// Unrecognized message kinds are ignored.
		}
	}
}
