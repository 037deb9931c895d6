package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// RFQRepository persists RFQs and their vendor invites.
type RFQRepository struct {
	db *sqlx.DB
}

// NewRFQRepository constructs the repository.
func NewRFQRepository(db *sqlx.DB) *RFQRepository {
	return &RFQRepository{db: db}
}

// CreateWithInvites inserts the RFQ and one invite per vendor inside
// the caller's transaction, generating the reference number under the
// same lock.
func (r *RFQRepository) CreateWithInvites(ctx context.Context, tx *sqlx.Tx, rfq *models.RFQ, invites []models.RFQVendorInvite) error {
	now := time.Now().UTC()
	if rfq.ID == "" {
		rfq.ID = uuid.NewString()
	}
	if rfq.SentAt.IsZero() {
		rfq.SentAt = now
	}
	rfq.Status = models.RFQStatusSent

	refNo, err := nextReferenceNo(ctx, tx, "rfqs", "RFQ", rfq.SocietyID, now)
	if err != nil {
		return err
	}
	rfq.ReferenceNo = refNo

	const insertRFQ = `INSERT INTO rfqs
	(id, purchase_request_id, society_id, reference_no, deadline, terms, status, sent_at)
	VALUES (:id, :purchase_request_id, :society_id, :reference_no, :deadline, :terms, :status, :sent_at)`
	if _, err := tx.NamedExecContext(ctx, insertRFQ, rfq); err != nil {
		return fmt.Errorf("insert rfq: %w", err)
	}

	const insertInvite = `INSERT INTO rfq_vendor_invites
	(id, rfq_id, vendor_id, token, invited_at)
	VALUES (:id, :rfq_id, :vendor_id, :token, :invited_at)`
	for i := range invites {
		invite := &invites[i]
		if invite.ID == "" {
			invite.ID = uuid.NewString()
		}
		invite.RFQID = rfq.ID
		invite.InvitedAt = now
		if _, err := tx.NamedExecContext(ctx, insertInvite, invite); err != nil {
			return fmt.Errorf("insert rfq vendor invite: %w", err)
		}
	}
	return nil
}

// GetByID fetches an RFQ.
func (r *RFQRepository) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	const query = `SELECT id, purchase_request_id, society_id, reference_no, deadline, terms, status, sent_at, closed_at
	FROM rfqs WHERE id = $1`
	var rfq models.RFQ
	if err := r.db.GetContext(ctx, &rfq, query, id); err != nil {
		return nil, err
	}
	return &rfq, nil
}

// GetInviteByToken resolves an invite from its opaque portal token.
func (r *RFQRepository) GetInviteByToken(ctx context.Context, token string) (*models.RFQVendorInvite, error) {
	const query = `SELECT id, rfq_id, vendor_id, token, invited_at, email_sent_at, quotation_id
	FROM rfq_vendor_invites WHERE token = $1`
	var invite models.RFQVendorInvite
	if err := r.db.GetContext(ctx, &invite, query, token); err != nil {
		return nil, err
	}
	return &invite, nil
}

// GetInviteForUpdate row-locks an invite inside the caller's
// transaction so at most one quotation can consume it.
func (r *RFQRepository) GetInviteForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RFQVendorInvite, error) {
	const query = `SELECT id, rfq_id, vendor_id, token, invited_at, email_sent_at, quotation_id
	FROM rfq_vendor_invites WHERE id = $1 FOR UPDATE`
	var invite models.RFQVendorInvite
	if err := tx.GetContext(ctx, &invite, query, id); err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkInviteConsumedWithTx links an invite to its quotation.
func (r *RFQRepository) MarkInviteConsumedWithTx(ctx context.Context, tx *sqlx.Tx, inviteID, quotationID string) error {
	const query = `UPDATE rfq_vendor_invites SET quotation_id = $1 WHERE id = $2 AND quotation_id IS NULL`
	result, err := tx.ExecContext(ctx, query, quotationID, inviteID)
	if err != nil {
		return fmt.Errorf("mark invite consumed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check invite update rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invite %s already consumed", inviteID)
	}
	return nil
}

// MarkInviteEmailed stamps the time the invite email went out. Called
// by the notification dispatcher, outside any core transaction.
func (r *RFQRepository) MarkInviteEmailed(ctx context.Context, inviteID string, at time.Time) error {
	const query = `UPDATE rfq_vendor_invites SET email_sent_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, inviteID); err != nil {
		return fmt.Errorf("mark invite emailed: %w", err)
	}
	return nil
}

// ListInvitesByRFQ returns all invites for one RFQ.
func (r *RFQRepository) ListInvitesByRFQ(ctx context.Context, rfqID string) ([]models.RFQVendorInvite, error) {
	const query = `SELECT id, rfq_id, vendor_id, token, invited_at, email_sent_at, quotation_id
	FROM rfq_vendor_invites WHERE rfq_id = $1 ORDER BY invited_at`
	var invites []models.RFQVendorInvite
	if err := r.db.SelectContext(ctx, &invites, query, rfqID); err != nil {
		return nil, fmt.Errorf("list rfq invites: %w", err)
	}
	return invites, nil
}

// CloseWithTx closes the RFQ once a PO is issued from it.
func (r *RFQRepository) CloseWithTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `UPDATE rfqs SET status = $1, closed_at = $2 WHERE id = $3 AND status = $4`
	if _, err := tx.ExecContext(ctx, query, models.RFQStatusClosed, time.Now().UTC(), id, models.RFQStatusSent); err != nil {
		return fmt.Errorf("close rfq: %w", err)
	}
	return nil
}
