package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xleb321/chat-project/internal/platform/id"
	"github.com/xleb321/chat-project/internal/services/chat/storage"
	"github.com/xleb321/chat-project/internal/services/chat/token"
)

const persistTimeout = 10 * time.Second

const frameTypeMessage = "message"

// inboundFrame is the wire envelope a connected client sends.
type inboundFrame struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Content string `json:"content"`
}

// outboundFrame is the wire envelope delivered to a recipient.
type outboundFrame struct {
	Type string         `json:"type"`
	Data messagePayload `json:"data"`
}

// messagePayload carries a delivered message. From holds the sender's
// username; recipients never see raw identity ids there.
type messagePayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// router persists inbound messages and attempts delivery to the recipient's
// live connection.
type router struct {
	registry *registry
	messages storage.MessageStore
}

func newRouter(reg *registry, messages storage.MessageStore) *router {
	return &router{
		registry: reg,
		messages: messages,
	}
}

// route builds the durable record for one message, submits it to the store,
// and attempts delivery. Persistence is fire-and-forget: the append is issued
// but relay does not wait on its completion, trading a small durability
// window for responsiveness. Content and recipient pass through verbatim; an
// unreachable (or blank) recipient is silent to the sender. Returns the new
// record id.
func (rt *router) route(from token.Identity, to string, content string) (string, error) {
	recordID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("new message id: %w", err)
	}
	record := storage.Message{
		ID:         recordID,
		FromUserID: from.ID,
		ToUserID:   to,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	// Not tied to the connection's context: an accepted message keeps
	// persisting even if the sender disconnects mid-flight.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := rt.messages.AppendMessage(ctx, record); err != nil {
			log.Printf("chat: append message %s from=%s to=%s: %v", record.ID, record.FromUserID, record.ToUserID, err)
		}
	}()

	rt.registry.send(to, outboundFrame{
		Type: frameTypeMessage,
		Data: messagePayload{
			ID:        record.ID,
			From:      from.Username,
			To:        record.ToUserID,
			Content:   record.Content,
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		},
	})

	return record.ID, nil
}
