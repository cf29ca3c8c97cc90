// Package chat hosts the real-time messaging service: account and friendship
// management over HTTP, and direct user-to-user message delivery over
// WebSocket connections backed by a durable SQLite message log.
package chat
