package audit

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/link-registry/internal/messaging"
)

// Publishers holds one typed publish function per lifecycle topic.
type Publishers struct {
	Created messaging.Publish[LinkCreatedEvent]
	Updated messaging.Publish[LinkUpdatedEvent]
	Deleted messaging.Publish[LinkDeletedEvent]
}

// NewPublishers binds the lifecycle topics to publisher.
func NewPublishers(publisher message.Publisher) Publishers {
	return Publishers{
		Created: messaging.NewPublishFunc[LinkCreatedEvent](publisher, TopicLinkCreated),
		Updated: messaging.NewPublishFunc[LinkUpdatedEvent](publisher, TopicLinkUpdated),
		Deleted: messaging.NewPublishFunc[LinkDeletedEvent](publisher, TopicLinkDeleted),
	}
}

// DiscardPublishers drops every event.
func DiscardPublishers() Publishers {
	return Publishers{
		Created: messaging.Discard[LinkCreatedEvent](),
		Updated: messaging.Discard[LinkUpdatedEvent](),
		Deleted: messaging.Discard[LinkDeletedEvent](),
	}
}
