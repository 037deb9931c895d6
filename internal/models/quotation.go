package models

import (
	"time"

	"github.com/societyhq/procurement-api/pkg/money"
)

// QuotationStatus enumerates a vendor quotation's lifecycle. A
// quotation is immutable once submitted except for status and rank.
type QuotationStatus string

const (
	QuotationStatusSubmitted QuotationStatus = "SUBMITTED"
	QuotationStatusAccepted  QuotationStatus = "ACCEPTED"
	QuotationStatusRejected  QuotationStatus = "REJECTED"
)

// Quotation is a vendor's priced response to an RFQ.
type Quotation struct {
	ID          string          `db:"id" json:"id"`
	RFQID       string          `db:"rfq_id" json:"rfq_id"`
	VendorID    string          `db:"vendor_id" json:"vendor_id"`
	ReferenceNo string          `db:"reference_no" json:"reference_no"`
	Status      QuotationStatus `db:"status" json:"status"`
	Subtotal    money.Paise     `db:"subtotal" json:"subtotal"`
	GSTAmount   money.Paise     `db:"gst_amount" json:"gst_amount"`
	TotalAmount money.Paise     `db:"total_amount" json:"total_amount"`
	Rank        *int            `db:"rank" json:"rank,omitempty"`
	Terms       string          `db:"terms" json:"terms"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submitted_at"`

	Items []QuotationItem `db:"-" json:"items,omitempty"`
}

// QuotationItem is one priced line of a quotation.
type QuotationItem struct {
	ID          string      `db:"id" json:"id"`
	QuotationID string      `db:"quotation_id" json:"quotation_id"`
	Description string      `db:"description" json:"description"`
	Quantity    int64       `db:"quantity" json:"quantity"`
	UnitPrice   money.Paise `db:"unit_price" json:"unit_price"`
	GSTRate     money.Rate  `db:"gst_rate" json:"gst_rate"`
	LineTotal   money.Paise `db:"line_total" json:"line_total"`
	Position    int         `db:"position" json:"position"`
}
