package dto

import "time"

// QuoteItemInput is one priced line a vendor submits via the portal.
type QuoteItemInput struct {
	Description string `json:"description" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unitPrice" binding:"required"`
	GSTRate     string `json:"gstRate" binding:"required"`
}

// SubmitQuotationRequest is the public token-authenticated submission
// payload.
type SubmitQuotationRequest struct {
	Token string           `json:"token" binding:"required"`
	Terms string           `json:"terms"`
	Items []QuoteItemInput `json:"items" binding:"required,min=1,dive"`
}

// QuoteRequestSnapshot is what an invited vendor sees before quoting:
// the RFQ, the originating request, and its line items. Vendor and
// society internals stay hidden.
type QuoteRequestSnapshot struct {
	RFQReferenceNo string         `json:"rfqReferenceNo"`
	Title          string         `json:"title"`
	Category       string         `json:"category"`
	Terms          string         `json:"terms"`
	Deadline       time.Time      `json:"deadline"`
	Items          []SnapshotItem `json:"items"`
	Submitted      bool           `json:"submitted"`
}

// SnapshotItem is one requested line shown to the vendor.
type SnapshotItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Unit        string `json:"unit"`
}
