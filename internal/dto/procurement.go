package dto

// RequestItemInput is one purchase-request line in a create payload.
// Monetary values are decimal strings with two fractional digits.
type RequestItemInput struct {
	Description    string `json:"description" binding:"required"`
	Quantity       int64  `json:"quantity" binding:"required,gt=0"`
	Unit           string `json:"unit"`
	EstimatedPrice string `json:"estimatedPrice" binding:"required"`
}

// CreatePurchaseRequestRequest payload for opening a procurement need.
type CreatePurchaseRequestRequest struct {
	Title    string             `json:"title" binding:"required"`
	Category string             `json:"category" binding:"required"`
	Priority string             `json:"priority"`
	Draft    bool               `json:"draft"`
	Items    []RequestItemInput `json:"items" binding:"required,min=1,dive"`
}

// SendRFQRequest payload for dispatching an RFQ to approved vendors.
type SendRFQRequest struct {
	Deadline string `json:"deadline"`
	Terms    string `json:"terms"`
}

// PurchaseRequestQuery mirrors supported listing filters.
type PurchaseRequestQuery struct {
	Status   string
	Category string
	Page     int
	PageSize int
}
