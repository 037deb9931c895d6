package dto

import "github.com/societyhq/procurement-api/internal/models"

// CreatePurchaseOrderRequest instantiates a PO from a ranked quotation.
// ApprovalRemark is mandatory when the quotation's rank is not 1.
type CreatePurchaseOrderRequest struct {
	RFQID          string `json:"rfqId" binding:"required"`
	QuotationID    string `json:"quotationId" binding:"required"`
	ApprovalRemark string `json:"approvalRemark"`
}

// CastVoteRequest is one executive member's quorum vote.
type CastVoteRequest struct {
	Action  models.NFAAction `json:"action" binding:"required,oneof=APPROVED REJECTED"`
	Remarks string           `json:"remarks"`
}

// TreasurerDecisionRequest is the trailing single-approver decision.
type TreasurerDecisionRequest struct {
	Action  models.NFAAction `json:"action" binding:"required,oneof=APPROVED REJECTED"`
	Remarks string           `json:"remarks"`
}

// NFAItemQuoteInput is one competing vendor price for an NFA item.
type NFAItemQuoteInput struct {
	VendorID  string `json:"vendorId" binding:"required" validate:"required"`
	UnitPrice string `json:"unitPrice" binding:"required" validate:"required"`
}

// NFAItemInput is one purchase line of a note for approval.
type NFAItemInput struct {
	Description   string              `json:"description" binding:"required" validate:"required"`
	Quantity      int64               `json:"quantity" binding:"required,gt=0" validate:"required,gt=0"`
	GSTRate       string              `json:"gstRate" binding:"required" validate:"required"`
	SelectedQuote int                 `json:"selectedQuote"`
	Quotes        []NFAItemQuoteInput `json:"quotes" binding:"required,min=1,max=3,dive" validate:"required,min=1,max=3,dive"`
}

// CreateNFARequest opens a note for approval in draft.
type CreateNFARequest struct {
	Title string         `json:"title" binding:"required" validate:"required"`
	Items []NFAItemInput `json:"items" binding:"required,min=1,dive" validate:"required,min=1,dive"`
}
