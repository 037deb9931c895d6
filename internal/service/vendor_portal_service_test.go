package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

type portalRFQStub struct {
	rfq      *models.RFQ
	invite   *models.RFQVendorInvite
	consumed string
}

func (s *portalRFQStub) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	if s.rfq == nil {
		return nil, sql.ErrNoRows
	}
	return s.rfq, nil
}

func (s *portalRFQStub) GetInviteByToken(ctx context.Context, token string) (*models.RFQVendorInvite, error) {
	if s.invite == nil || s.invite.Token != token {
		return nil, sql.ErrNoRows
	}
	copied := *s.invite
	return &copied, nil
}

func (s *portalRFQStub) GetInviteForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RFQVendorInvite, error) {
	copied := *s.invite
	return &copied, nil
}

func (s *portalRFQStub) MarkInviteConsumedWithTx(ctx context.Context, tx *sqlx.Tx, inviteID, quotationID string) error {
	s.consumed = quotationID
	return nil
}

type portalQuotationStub struct {
	created  *models.Quotation
	existing *models.Quotation
}

func (s *portalQuotationStub) CreateWithTx(ctx context.Context, tx *sqlx.Tx, q *models.Quotation) error {
	q.ID = "quote-new"
	q.ReferenceNo = "QTN-202603-001"
	q.SubmittedAt = time.Now().UTC()
	q.Status = models.QuotationStatusSubmitted
	s.created = q
	return nil
}

func (s *portalQuotationStub) GetByID(ctx context.Context, id string) (*models.Quotation, error) {
	if s.existing != nil && s.existing.ID == id {
		return s.existing, nil
	}
	return nil, sql.ErrNoRows
}

type portalRequestStub struct {
	pr       *models.PurchaseRequest
	advanced bool
}

func (s *portalRequestStub) GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	if s.pr == nil {
		return nil, sql.ErrNoRows
	}
	return s.pr, nil
}

func (s *portalRequestStub) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error {
	if s.pr.Status != from {
		return sql.ErrNoRows
	}
	s.advanced = true
	return nil
}

type rankerStub struct {
	calls int
}

func (s *rankerStub) RerankWithTx(ctx context.Context, tx *sqlx.Tx, rfqID string) error {
	s.calls++
	return nil
}

func portalFixture(t *testing.T, deadline time.Time) (*VendorPortalService, *portalRFQStub, *portalQuotationStub, *portalRequestStub, *rankerStub) {
	t.Helper()
	rfqs := &portalRFQStub{
		rfq: &models.RFQ{
			ID:                "rfq-1",
			PurchaseRequestID: "pr-1",
			SocietyID:         "soc-1",
			ReferenceNo:       "RFQ-202603-0001",
			Status:            models.RFQStatusSent,
			Deadline:          deadline,
			Terms:             "delivery within 7 days",
		},
		invite: &models.RFQVendorInvite{
			ID:       "invite-1",
			RFQID:    "rfq-1",
			VendorID: "vendor-1",
			Token:    "tok-abc",
		},
	}
	quotations := &portalQuotationStub{}
	requests := &portalRequestStub{
		pr: &models.PurchaseRequest{
			ID:        "pr-1",
			SocietyID: "soc-1",
			Title:     "Housekeeping Supplies",
			Category:  "HOUSEKEEPING",
			Status:    models.PRStatusRFQSent,
			Items: []models.PurchaseRequestItem{
				{Description: "Phenyl 5L", Quantity: 20, Unit: "can"},
			},
		},
	}
	ranker := &rankerStub{}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := NewVendorPortalService(rfqs, quotations, requests, ranker, nil, tx, nil, nil, nil, time.Minute)
	return service, rfqs, quotations, requests, ranker
}

func TestPortalSnapshotHidesInternals(t *testing.T) {
	deadline := time.Now().Add(48 * time.Hour).UTC()
	service, _, _, _, _ := portalFixture(t, deadline)

	snapshot, err := service.Snapshot(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "Housekeeping Supplies", snapshot.Title)
	assert.Equal(t, "RFQ-202603-0001", snapshot.RFQReferenceNo)
	assert.False(t, snapshot.Submitted)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "Phenyl 5L", snapshot.Items[0].Description)
}

func TestPortalSnapshotUnknownTokenIsOpaque(t *testing.T) {
	service, _, _, _, _ := portalFixture(t, time.Now().Add(time.Hour))

	_, err := service.Snapshot(context.Background(), "tok-forged")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestPortalSubmitQuotation(t *testing.T) {
	deadline := time.Now().Add(48 * time.Hour).UTC()
	service, rfqs, quotations, requests, ranker := portalFixture(t, deadline)

	quotation, err := service.SubmitQuotation(context.Background(), dto.SubmitQuotationRequest{
		Token: "tok-abc",
		Items: []dto.QuoteItemInput{
			{Description: "Phenyl 5L", Quantity: 20, UnitPrice: "450.00", GSTRate: "18"},
		},
	})
	require.NoError(t, err)

	// 20 x 450.00 = 9000.00 plus 18% GST = 10620.00.
	assert.Equal(t, money.Paise(1062000), quotation.TotalAmount)
	assert.Equal(t, "vendor-1", quotation.VendorID)
	assert.Equal(t, "quote-new", rfqs.consumed)
	assert.True(t, requests.advanced)
	assert.Equal(t, 1, ranker.calls)
	require.NotNil(t, quotations.created)
	assert.Equal(t, money.Paise(900000), quotations.created.Subtotal)
}

func TestPortalSubmitAfterDeadline(t *testing.T) {
	service, _, _, _, _ := portalFixture(t, time.Now().Add(-time.Hour))

	_, err := service.SubmitQuotation(context.Background(), dto.SubmitQuotationRequest{
		Token: "tok-abc",
		Items: []dto.QuoteItemInput{
			{Description: "Phenyl 5L", Quantity: 20, UnitPrice: "450.00", GSTRate: "18"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
}

func TestPortalSubmitIsIdempotent(t *testing.T) {
	service, rfqs, quotations, _, _ := portalFixture(t, time.Now().Add(time.Hour))
	existingID := "quote-existing"
	rfqs.invite.QuotationID = &existingID
	quotations.existing = &models.Quotation{ID: existingID, RFQID: "rfq-1", VendorID: "vendor-1"}

	quotation, err := service.SubmitQuotation(context.Background(), dto.SubmitQuotationRequest{
		Token: "tok-abc",
		Items: []dto.QuoteItemInput{
			{Description: "Phenyl 5L", Quantity: 20, UnitPrice: "450.00", GSTRate: "18"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, existingID, quotation.ID)
	assert.Nil(t, quotations.created, "no new quotation may be stored for a consumed invite")
}

func TestPortalSubmitRejectsInvalidAmounts(t *testing.T) {
	service, _, _, _, _ := portalFixture(t, time.Now().Add(time.Hour))

	_, err := service.SubmitQuotation(context.Background(), dto.SubmitQuotationRequest{
		Token: "tok-abc",
		Items: []dto.QuoteItemInput{
			{Description: "Phenyl 5L", Quantity: 20, UnitPrice: "450.005", GSTRate: "18"},
		},
	})
	require.Error(t, err)
}
