package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// NFARepository persists notes for approval, their items, competing
// quotes, and the append-only vote rows.
type NFARepository struct {
	db *sqlx.DB
}

// NewNFARepository constructs the repository.
func NewNFARepository(db *sqlx.DB) *NFARepository {
	return &NFARepository{db: db}
}

// Create inserts an NFA with items and competing quotes, generating
// the reference number in the same transaction.
func (r *NFARepository) Create(ctx context.Context, nfa *models.NoteForApproval) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin nfa transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if nfa.ID == "" {
		nfa.ID = uuid.NewString()
	}
	nfa.CreatedAt = now
	nfa.UpdatedAt = now

	nfa.ReferenceNo, err = nextReferenceNo(ctx, tx, "nfas", "NFA", nfa.SocietyID, now)
	if err != nil {
		return err
	}

	const insertNFA = `INSERT INTO nfas
	(id, society_id, reference_no, title, status, total_exec_members, required_exec_approvals,
	 current_exec_approvals, current_exec_rejections, total_amount, created_by, created_at, updated_at)
	VALUES (:id, :society_id, :reference_no, :title, :status, :total_exec_members, :required_exec_approvals,
	 :current_exec_approvals, :current_exec_rejections, :total_amount, :created_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertNFA, nfa); err != nil {
		return fmt.Errorf("insert nfa: %w", err)
	}

	const insertItem = `INSERT INTO nfa_items
	(id, nfa_id, description, quantity, gst_rate, selected_quote, position)
	VALUES (:id, :nfa_id, :description, :quantity, :gst_rate, :selected_quote, :position)`
	const insertQuote = `INSERT INTO nfa_item_quotes
	(id, nfa_item_id, vendor_id, unit_price, position)
	VALUES (:id, :nfa_item_id, :vendor_id, :unit_price, :position)`

	for i := range nfa.Items {
		item := &nfa.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.NFAID = nfa.ID
		item.Position = i + 1
		if _, err = tx.NamedExecContext(ctx, insertItem, item); err != nil {
			return fmt.Errorf("insert nfa item: %w", err)
		}
		for j := range item.Quotes {
			quote := &item.Quotes[j]
			if quote.ID == "" {
				quote.ID = uuid.NewString()
			}
			quote.NFAItemID = item.ID
			quote.Position = j + 1
			if _, err = tx.NamedExecContext(ctx, insertQuote, quote); err != nil {
				return fmt.Errorf("insert nfa item quote: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit nfa: %w", err)
	}
	return nil
}

// GetByID fetches an NFA with items and competing quotes.
func (r *NFARepository) GetByID(ctx context.Context, id string) (*models.NoteForApproval, error) {
	const query = `SELECT id, society_id, reference_no, title, status, total_exec_members, required_exec_approvals,
	current_exec_approvals, current_exec_rejections, treasurer_approved_by, treasurer_approved_at, treasurer_remarks,
	total_amount, created_by, created_at, updated_at
	FROM nfas WHERE id = $1`
	var nfa models.NoteForApproval
	if err := r.db.GetContext(ctx, &nfa, query, id); err != nil {
		return nil, err
	}

	const itemQuery = `SELECT id, nfa_id, description, quantity, gst_rate, selected_quote, position
	FROM nfa_items WHERE nfa_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &nfa.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("load nfa items: %w", err)
	}

	const quoteQuery = `SELECT q.id, q.nfa_item_id, q.vendor_id, q.unit_price, q.position
	FROM nfa_item_quotes q JOIN nfa_items i ON i.id = q.nfa_item_id
	WHERE i.nfa_id = $1 ORDER BY q.position`
	var quotes []models.NFAItemQuote
	if err := r.db.SelectContext(ctx, &quotes, quoteQuery, id); err != nil {
		return nil, fmt.Errorf("load nfa item quotes: %w", err)
	}
	byItem := make(map[string][]models.NFAItemQuote, len(nfa.Items))
	for _, q := range quotes {
		byItem[q.NFAItemID] = append(byItem[q.NFAItemID], q)
	}
	for i := range nfa.Items {
		nfa.Items[i].Quotes = byItem[nfa.Items[i].ID]
	}
	return &nfa, nil
}

// GetForUpdate row-locks the NFA inside the caller's transaction.
// Concurrent voters serialize on this lock.
func (r *NFARepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.NoteForApproval, error) {
	const query = `SELECT id, society_id, reference_no, title, status, total_exec_members, required_exec_approvals,
	current_exec_approvals, current_exec_rejections, treasurer_approved_by, treasurer_approved_at, treasurer_remarks,
	total_amount, created_by, created_at, updated_at
	FROM nfas WHERE id = $1 FOR UPDATE`
	var nfa models.NoteForApproval
	if err := tx.GetContext(ctx, &nfa, query, id); err != nil {
		return nil, err
	}
	return &nfa, nil
}

// InsertApprovalWithTx appends one vote row. The unique (nfa_id,
// user_id) index surfaces a duplicate as a unique violation even if
// the row lock was somehow bypassed.
func (r *NFARepository) InsertApprovalWithTx(ctx context.Context, tx *sqlx.Tx, approval *models.NFAApproval) error {
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO nfa_approvals (id, nfa_id, user_id, user_role, action, remarks, created_at)
	VALUES (:id, :nfa_id, :user_id, :user_role, :action, :remarks, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("insert nfa approval: %w", err)
	}
	return nil
}

// HasVoted reports whether a user already has a vote row for this NFA.
func (r *NFARepository) HasVoted(ctx context.Context, nfaID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM nfa_approvals WHERE nfa_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, nfaID, userID); err != nil {
		return false, fmt.Errorf("check nfa vote: %w", err)
	}
	return exists, nil
}

// ListApprovals returns the vote trail for one NFA, oldest first.
func (r *NFARepository) ListApprovals(ctx context.Context, nfaID string) ([]models.NFAApproval, error) {
	const query = `SELECT id, nfa_id, user_id, user_role, action, remarks, created_at
	FROM nfa_approvals WHERE nfa_id = $1 ORDER BY created_at`
	var approvals []models.NFAApproval
	if err := r.db.SelectContext(ctx, &approvals, query, nfaID); err != nil {
		return nil, fmt.Errorf("list nfa approvals: %w", err)
	}
	return approvals, nil
}

// FreezeQuorumWithTx stamps the committee-size snapshot and moves the
// NFA out of DRAFT in one guarded statement, so no partially
// initialized voting state is ever visible.
func (r *NFARepository) FreezeQuorumWithTx(ctx context.Context, tx *sqlx.Tx, id string, totalMembers, quorum int, status models.NFAStatus) error {
	const query = `UPDATE nfas SET total_exec_members = $1, required_exec_approvals = $2, status = $3, updated_at = $4
	WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, query, totalMembers, quorum, status, time.Now().UTC(), id, models.NFAStatusDraft)
	if err != nil {
		return fmt.Errorf("freeze nfa quorum: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check quorum update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTallyWithTx writes the new vote counts and status under the
// row lock taken by GetForUpdate.
func (r *NFARepository) UpdateTallyWithTx(ctx context.Context, tx *sqlx.Tx, id string, approvals, rejections int, status models.NFAStatus) error {
	const query = `UPDATE nfas SET current_exec_approvals = $1, current_exec_rejections = $2, status = $3, updated_at = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, query, approvals, rejections, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update nfa tally: %w", err)
	}
	return nil
}

// StampTreasurerWithTx records the treasurer decision, guarded on
// PENDING_TREASURER.
func (r *NFARepository) StampTreasurerWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.NFAStatus, decidedBy string, decidedAt time.Time, remarks *string) error {
	const query = `UPDATE nfas SET status = $1, treasurer_approved_by = $2, treasurer_approved_at = $3, treasurer_remarks = $4, updated_at = $3
	WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, query, status, decidedBy, decidedAt, remarks, id, models.NFAStatusPendingTreasurer)
	if err != nil {
		return fmt.Errorf("stamp treasurer decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check treasurer update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves an NFA between statuses, guarded on the current
// one.
func (r *NFARepository) UpdateStatus(ctx context.Context, id string, from, to models.NFAStatus) error {
	const query = `UPDATE nfas SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update nfa status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check nfa update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatusWithTx is UpdateStatus inside a caller-owned transaction.
func (r *NFARepository) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.NFAStatus) error {
	const query = `UPDATE nfas SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update nfa status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check nfa update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountExecMembers counts committee members eligible to vote for a
// society at NFA-creation time. The quorum derived from it is frozen
// on the NFA for auditability.
func (r *NFARepository) CountExecMembers(ctx context.Context, societyID string) (int, error) {
	const query = `SELECT COUNT(*) FROM society_members WHERE society_id = $1 AND role = $2 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, societyID, models.RoleCommitteeMember); err != nil {
		return 0, fmt.Errorf("count exec members: %w", err)
	}
	return count, nil
}
