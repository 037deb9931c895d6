package models

import (
	"time"

	"github.com/societyhq/procurement-api/pkg/money"
)

// PurchaseOrderStatus enumerates the sequential PO approval chain.
type PurchaseOrderStatus string

const (
	POStatusDraft     PurchaseOrderStatus = "DRAFT"
	POStatusPendingL1 PurchaseOrderStatus = "PENDING_L1"
	POStatusPendingL2 PurchaseOrderStatus = "PENDING_L2"
	POStatusPendingL3 PurchaseOrderStatus = "PENDING_L3"
	POStatusApproved  PurchaseOrderStatus = "APPROVED"
	POStatusIssued    PurchaseOrderStatus = "ISSUED"
	POStatusDelivered PurchaseOrderStatus = "DELIVERED"
	POStatusCancelled PurchaseOrderStatus = "CANCELLED"
)

var poTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	POStatusDraft:     {POStatusPendingL1, POStatusCancelled},
	POStatusPendingL1: {POStatusPendingL2, POStatusCancelled},
	POStatusPendingL2: {POStatusPendingL3, POStatusCancelled},
	POStatusPendingL3: {POStatusApproved, POStatusCancelled},
	POStatusApproved:  {POStatusIssued, POStatusCancelled},
	POStatusIssued:    {POStatusDelivered},
}

// CanTransition reports whether moving from into to is a legal step.
func (s PurchaseOrderStatus) CanTransition(to PurchaseOrderStatus) bool {
	for _, next := range poTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ApprovalLevel is one of the three sequential PO sign-off gates.
type ApprovalLevel int

const (
	ApprovalLevelL1 ApprovalLevel = 1
	ApprovalLevelL2 ApprovalLevel = 2
	ApprovalLevelL3 ApprovalLevel = 3
)

// RoleToApprovalLevel maps an actor role onto its fixed approval level:
// L1 committee member, L2 treasurer, L3 society admin. The second
// return is false for roles outside the chain.
func RoleToApprovalLevel(role UserRole) (ApprovalLevel, bool) {
	switch role {
	case RoleCommitteeMember:
		return ApprovalLevelL1, true
	case RoleTreasurer:
		return ApprovalLevelL2, true
	case RoleSocietyAdmin:
		return ApprovalLevelL3, true
	default:
		return 0, false
	}
}

// PendingStatus returns the PO status at which this level may approve.
func (l ApprovalLevel) PendingStatus() PurchaseOrderStatus {
	switch l {
	case ApprovalLevelL1:
		return POStatusPendingL1
	case ApprovalLevelL2:
		return POStatusPendingL2
	default:
		return POStatusPendingL3
	}
}

// NextStatus returns the status the PO advances to once this level has
// approved.
func (l ApprovalLevel) NextStatus() PurchaseOrderStatus {
	switch l {
	case ApprovalLevelL1:
		return POStatusPendingL2
	case ApprovalLevelL2:
		return POStatusPendingL3
	default:
		return POStatusApproved
	}
}

// PurchaseOrder is the binding order created from one accepted
// quotation. Approval stamps are set in strict L1, L2, L3 order.
type PurchaseOrder struct {
	ID             string              `db:"id" json:"id"`
	SocietyID      string              `db:"society_id" json:"society_id"`
	RFQID          string              `db:"rfq_id" json:"rfq_id"`
	QuotationID    string              `db:"quotation_id" json:"quotation_id"`
	VendorID       string              `db:"vendor_id" json:"vendor_id"`
	ReferenceNo    string              `db:"reference_no" json:"reference_no"`
	Status         PurchaseOrderStatus `db:"status" json:"status"`
	ApprovalRemark *string             `db:"approval_remark" json:"approval_remark,omitempty"`
	TotalAmount    money.Paise         `db:"total_amount" json:"total_amount"`
	CreatedBy      string              `db:"created_by" json:"created_by"`
	L1ApprovedBy   *string             `db:"l1_approved_by" json:"l1_approved_by,omitempty"`
	L1ApprovedAt   *time.Time          `db:"l1_approved_at" json:"l1_approved_at,omitempty"`
	L2ApprovedBy   *string             `db:"l2_approved_by" json:"l2_approved_by,omitempty"`
	L2ApprovedAt   *time.Time          `db:"l2_approved_at" json:"l2_approved_at,omitempty"`
	L3ApprovedBy   *string             `db:"l3_approved_by" json:"l3_approved_by,omitempty"`
	L3ApprovedAt   *time.Time          `db:"l3_approved_at" json:"l3_approved_at,omitempty"`
	IssuedAt       *time.Time          `db:"issued_at" json:"issued_at,omitempty"`
	DeliveredAt    *time.Time          `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}
