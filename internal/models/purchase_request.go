package models

import (
	"time"

	"github.com/societyhq/procurement-api/pkg/money"
)

// PurchaseRequestStatus enumerates the PR lifecycle.
type PurchaseRequestStatus string

const (
	PRStatusDraft          PurchaseRequestStatus = "DRAFT"
	PRStatusOpen           PurchaseRequestStatus = "OPEN"
	PRStatusRFQSent        PurchaseRequestStatus = "RFQ_SENT"
	PRStatusQuotesReceived PurchaseRequestStatus = "QUOTES_RECEIVED"
	PRStatusPOCreated      PurchaseRequestStatus = "PO_CREATED"
	PRStatusCompleted      PurchaseRequestStatus = "COMPLETED"
	PRStatusCancelled      PurchaseRequestStatus = "CANCELLED"
)

// prTransitions is the forward transition table; terminal states have
// no outgoing edges so a transition is never reapplied once terminal.
var prTransitions = map[PurchaseRequestStatus][]PurchaseRequestStatus{
	PRStatusDraft:          {PRStatusOpen, PRStatusCancelled},
	PRStatusOpen:           {PRStatusRFQSent, PRStatusCancelled},
	PRStatusRFQSent:        {PRStatusQuotesReceived, PRStatusCancelled},
	PRStatusQuotesReceived: {PRStatusPOCreated, PRStatusCancelled},
	PRStatusPOCreated:      {PRStatusCompleted, PRStatusCancelled},
}

// CanTransition reports whether moving from into to is a legal step.
func (s PurchaseRequestStatus) CanTransition(to PurchaseRequestStatus) bool {
	for _, next := range prTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s PurchaseRequestStatus) Terminal() bool {
	return len(prTransitions[s]) == 0
}

// PurchaseRequest is an internal statement of procurement need.
type PurchaseRequest struct {
	ID          string                `db:"id" json:"id"`
	SocietyID   string                `db:"society_id" json:"society_id"`
	ReferenceNo string                `db:"reference_no" json:"reference_no"`
	Title       string                `db:"title" json:"title"`
	Category    string                `db:"category" json:"category"`
	Priority    string                `db:"priority" json:"priority"`
	Status      PurchaseRequestStatus `db:"status" json:"status"`
	RequestedBy string                `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time             `db:"updated_at" json:"updated_at"`

	Items []PurchaseRequestItem `db:"-" json:"items,omitempty"`
}

// PurchaseRequestItem is one line of procurement need.
type PurchaseRequestItem struct {
	ID                string      `db:"id" json:"id"`
	PurchaseRequestID string      `db:"purchase_request_id" json:"purchase_request_id"`
	Description       string      `db:"description" json:"description"`
	Quantity          int64       `db:"quantity" json:"quantity"`
	Unit              string      `db:"unit" json:"unit"`
	EstimatedPrice    money.Paise `db:"estimated_price" json:"estimated_price"`
	Position          int         `db:"position" json:"position"`
}
