package models

import "time"

// RFQStatus enumerates the request-for-quotation lifecycle.
type RFQStatus string

const (
	RFQStatusSent   RFQStatus = "SENT"
	RFQStatusClosed RFQStatus = "CLOSED"
)

// RFQ is sent to invited vendors for one purchase request. There is at
// most one active RFQ per procurement cycle.
type RFQ struct {
	ID                string     `db:"id" json:"id"`
	PurchaseRequestID string     `db:"purchase_request_id" json:"purchase_request_id"`
	SocietyID         string     `db:"society_id" json:"society_id"`
	ReferenceNo       string     `db:"reference_no" json:"reference_no"`
	Deadline          time.Time  `db:"deadline" json:"deadline"`
	Terms             string     `db:"terms" json:"terms"`
	Status            RFQStatus  `db:"status" json:"status"`
	SentAt            time.Time  `db:"sent_at" json:"sent_at"`
	ClosedAt          *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// RFQVendorInvite carries the opaque token that is the sole credential
// for the public quote-submission endpoint. One invite admits at most
// one quotation.
type RFQVendorInvite struct {
	ID          string     `db:"id" json:"id"`
	RFQID       string     `db:"rfq_id" json:"rfq_id"`
	VendorID    string     `db:"vendor_id" json:"vendor_id"`
	Token       string     `db:"token" json:"-"`
	InvitedAt   time.Time  `db:"invited_at" json:"invited_at"`
	EmailSentAt *time.Time `db:"email_sent_at" json:"email_sent_at,omitempty"`
	QuotationID *string    `db:"quotation_id" json:"quotation_id,omitempty"`
}
