// Package audit describes link lifecycle events and records them.
package audit

import "time"

const (
	TopicLinkCreated = "link.created"
	TopicLinkUpdated = "link.updated"
	TopicLinkDeleted = "link.deleted"
)

// LinkCreatedEvent is emitted after a link is filed under a new key.
type LinkCreatedEvent struct {
	Key         string    `json:"key"`
	Destination string    `json:"destination"`
	Owner       string    `json:"owner"`
	Ledger      uint32    `json:"ledger"`
	Generated   bool      `json:"generated"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// LinkUpdatedEvent is emitted after the owner changes a link's destination.
type LinkUpdatedEvent struct {
	Key         string    `json:"key"`
	Destination string    `json:"destination"`
	Owner       string    `json:"owner"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// LinkDeletedEvent is emitted after the owner removes a link.
type LinkDeletedEvent struct {
	Key        string    `json:"key"`
	Owner      string    `json:"owner"`
	OccurredAt time.Time `json:"occurredAt"`
}
