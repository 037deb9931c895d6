package models

import "time"

// DomainEventType identifies the status-change events the core emits
// for the notification collaborator.
type DomainEventType string

const (
	EventRFQSent            DomainEventType = "RFQ_SENT"
	EventQuotationSubmitted DomainEventType = "QUOTATION_SUBMITTED"
	EventPOStatusChanged    DomainEventType = "PO_STATUS_CHANGED"
	EventNFAStatusChanged   DomainEventType = "NFA_STATUS_CHANGED"
)

// DomainEvent is a fire-and-forget notification of a status change.
// Sink failures never roll back the originating transaction.
type DomainEvent struct {
	Type       DomainEventType `json:"type"`
	SocietyID  string          `json:"society_id"`
	EntityID   string          `json:"entity_id"`
	Status     string          `json:"status,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    map[string]any  `json:"payload,omitempty"`
}
