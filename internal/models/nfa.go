package models

import (
	"time"

	"github.com/societyhq/procurement-api/pkg/money"
)

// NFAStatus enumerates the note-for-approval lifecycle.
type NFAStatus string

const (
	NFAStatusDraft            NFAStatus = "DRAFT"
	NFAStatusPendingExec      NFAStatus = "PENDING_EXEC"
	NFAStatusPendingTreasurer NFAStatus = "PENDING_TREASURER"
	NFAStatusApproved         NFAStatus = "APPROVED"
	NFAStatusRejected         NFAStatus = "REJECTED"
	NFAStatusPOCreated        NFAStatus = "PO_CREATED"
	NFAStatusCompleted        NFAStatus = "COMPLETED"
)

var nfaTransitions = map[NFAStatus][]NFAStatus{
	NFAStatusDraft:            {NFAStatusPendingExec, NFAStatusPendingTreasurer},
	NFAStatusPendingExec:      {NFAStatusPendingTreasurer, NFAStatusRejected},
	NFAStatusPendingTreasurer: {NFAStatusApproved, NFAStatusRejected},
	NFAStatusApproved:         {NFAStatusPOCreated, NFAStatusCompleted},
	NFAStatusPOCreated:        {NFAStatusCompleted},
}

// CanTransition reports whether moving from into to is a legal step.
func (s NFAStatus) CanTransition(to NFAStatus) bool {
	for _, next := range nfaTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// NFAAction is an executive member's or treasurer's decision.
type NFAAction string

const (
	NFAActionApproved NFAAction = "APPROVED"
	NFAActionRejected NFAAction = "REJECTED"
)

// NoteForApproval routes a purchase through quorum-based committee
// voting followed by a single treasurer sign-off. The quorum is fixed
// at creation time and does not move if membership changes later.
type NoteForApproval struct {
	ID                    string      `db:"id" json:"id"`
	SocietyID             string      `db:"society_id" json:"society_id"`
	ReferenceNo           string      `db:"reference_no" json:"reference_no"`
	Title                 string      `db:"title" json:"title"`
	Status                NFAStatus   `db:"status" json:"status"`
	TotalExecMembers      int         `db:"total_exec_members" json:"total_exec_members"`
	RequiredExecApprovals int         `db:"required_exec_approvals" json:"required_exec_approvals"`
	CurrentExecApprovals  int         `db:"current_exec_approvals" json:"current_exec_approvals"`
	CurrentExecRejections int         `db:"current_exec_rejections" json:"current_exec_rejections"`
	TreasurerApprovedBy   *string     `db:"treasurer_approved_by" json:"treasurer_approved_by,omitempty"`
	TreasurerApprovedAt   *time.Time  `db:"treasurer_approved_at" json:"treasurer_approved_at,omitempty"`
	TreasurerRemarks      *string     `db:"treasurer_remarks" json:"treasurer_remarks,omitempty"`
	TotalAmount           money.Paise `db:"total_amount" json:"total_amount"`
	CreatedBy             string      `db:"created_by" json:"created_by"`
	CreatedAt             time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at" json:"updated_at"`

	Items []NFAItem `db:"-" json:"items,omitempty"`
}

// NFAItem is one purchase line with up to three competing vendor quotes
// and the quote the requester selected.
type NFAItem struct {
	ID            string      `db:"id" json:"id"`
	NFAID         string      `db:"nfa_id" json:"nfa_id"`
	Description   string      `db:"description" json:"description"`
	Quantity      int64       `db:"quantity" json:"quantity"`
	GSTRate       money.Rate  `db:"gst_rate" json:"gst_rate"`
	SelectedQuote int         `db:"selected_quote" json:"selected_quote"`
	Position      int         `db:"position" json:"position"`
	Quotes        []NFAItemQuote `db:"-" json:"quotes"`
}

// NFAItemQuote is one competing vendor price for an NFA item.
type NFAItemQuote struct {
	ID        string      `db:"id" json:"id"`
	NFAItemID string      `db:"nfa_item_id" json:"nfa_item_id"`
	VendorID  string      `db:"vendor_id" json:"vendor_id"`
	UnitPrice money.Paise `db:"unit_price" json:"unit_price"`
	Position  int         `db:"position" json:"position"`
}

// NFAApproval is one executive member's vote. Append-only; the unique
// (nfa_id, user_id) constraint enforces exactly one vote per member.
type NFAApproval struct {
	ID        string    `db:"id" json:"id"`
	NFAID     string    `db:"nfa_id" json:"nfa_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserRole  UserRole  `db:"user_role" json:"user_role"`
	Action    NFAAction `db:"action" json:"action"`
	Remarks   *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
