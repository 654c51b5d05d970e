package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ConnectionOpenedEvent is emitted when a connection completes its handshake.
type ConnectionOpenedEvent struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Plan         string    `json:"plan"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConnectionClosedEvent is emitted when a connection is torn down.
type ConnectionClosedEvent struct {
	ConnectionID string        `json:"connection_id"`
	UserID       string        `json:"user_id"`
	Rooms        []string      `json:"rooms"`
	Duration     time.Duration `json:"duration"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Event definitions for the gateway.
var (
	ConnectionOpenedV1 = helper.EventDefinition[ConnectionOpenedEvent](
		"gateway",
		"ConnectionOpened",
		"v1",
	)

	ConnectionClosedV1 = helper.EventDefinition[ConnectionClosedEvent](
		"gateway",
		"ConnectionClosed",
		"v1",
	)
)
