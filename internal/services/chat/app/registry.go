package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/xleb321/chat-project/internal/platform/timeouts"
	"github.com/xleb321/chat-project/internal/services/chat/token"
	"golang.org/x/net/websocket"
)

// wsPeer wraps one live WebSocket connection with serialized, deadline-bound
// writes so a stalled recipient cannot block the goroutine delivering to it.
type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
	enc  *json.Encoder
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		conn: conn,
		enc:  json.NewEncoder(conn),
	}
}

func (p *wsPeer) writeFrame(frame any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(timeouts.WebSocketWrite))
	return p.enc.Encode(frame)
}

func (p *wsPeer) close() error {
	return p.conn.Close()
}

type registryEntry struct {
	identity    token.Identity
	peer        *wsPeer
	connectedAt time.Time
}

// registry maps a user id to its single live connection. All mutation goes
// through register/deregister; reads go through lookup/send.
type registry struct {
	mu      sync.Mutex
	entries map[string]registryEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]registryEntry)}
}

// register installs the peer as the identity's live connection. A previous
// connection for the same identity is evicted and closed, last-connect-wins.
func (r *registry) register(identity token.Identity, peer *wsPeer) {
	r.mu.Lock()
	previous, evicting := r.entries[identity.ID]
	r.entries[identity.ID] = registryEntry{
		identity:    identity,
		peer:        peer,
		connectedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	if evicting && previous.peer != peer {
		// Best-effort: the evicted handle may already be half-dead.
		_ = previous.peer.close()
	}
}

// deregister removes the identity's entry only when it still points at peer.
// A close event for a handle already superseded by a newer connection is a
// no-op, so a stale close can never delete a valid newer entry.
func (r *registry) deregister(userID string, peer *wsPeer) {
	r.mu.Lock()
	if entry, ok := r.entries[userID]; ok && entry.peer == peer {
		delete(r.entries, userID)
	}
	r.mu.Unlock()
}

// lookup returns the live peer for a user id, if any.
func (r *registry) lookup(userID string) (*wsPeer, bool) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return entry.peer, true
}

// send attempts a best-effort delivery to the user's live connection. It
// reports false when the user has no entry or the write fails; failure is
// never escalated to the sender.
func (r *registry) send(userID string, frame any) bool {
	peer, ok := r.lookup(userID)
	if !ok {
		return false
	}
	return peer.writeFrame(frame) == nil
}
