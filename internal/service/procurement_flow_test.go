package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/internal/repository"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

// flowWorld is a shared in-memory backing store so the full
// procurement cycle can run through the real services end to end.
type flowWorld struct {
	vendors []models.Vendor
	pr      *models.PurchaseRequest
	rfq     *models.RFQ
	invites []models.RFQVendorInvite
	quotes  map[string]*models.Quotation
	order   *models.PurchaseOrder
	seq     int
	clock   time.Time
}

func newFlowWorld() *flowWorld {
	return &flowWorld{
		quotes: make(map[string]*models.Quotation),
		clock:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (w *flowWorld) tick() time.Time {
	w.clock = w.clock.Add(time.Minute)
	return w.clock
}

type flowRequestStore struct{ w *flowWorld }

func (s *flowRequestStore) Create(ctx context.Context, pr *models.PurchaseRequest) error {
	pr.ID = "pr-1"
	pr.ReferenceNo = "PR-202608-0001"
	pr.CreatedAt = s.w.tick()
	s.w.pr = pr
	return nil
}

func (s *flowRequestStore) GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	if s.w.pr == nil || s.w.pr.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.w.pr
	return &copied, nil
}

func (s *flowRequestStore) List(ctx context.Context, filter repository.PurchaseRequestFilter) ([]models.PurchaseRequest, error) {
	return nil, nil
}

func (s *flowRequestStore) UpdateStatus(ctx context.Context, id string, from, to models.PurchaseRequestStatus) error {
	if s.w.pr == nil || s.w.pr.ID != id || s.w.pr.Status != from {
		return sql.ErrNoRows
	}
	s.w.pr.Status = to
	return nil
}

func (s *flowRequestStore) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error {
	return s.UpdateStatus(ctx, id, from, to)
}

type flowVendorDirectory struct{ w *flowWorld }

func (s *flowVendorDirectory) ListApprovedVendors(ctx context.Context, societyID, category string) ([]models.Vendor, error) {
	var matched []models.Vendor
	for _, v := range s.w.vendors {
		if v.SocietyID == societyID && v.Category == category && v.Approved {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

func (s *flowVendorDirectory) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	for _, v := range s.w.vendors {
		if v.ID == id {
			copied := v
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type flowRFQStore struct{ w *flowWorld }

func (s *flowRFQStore) CreateWithInvites(ctx context.Context, tx *sqlx.Tx, rfq *models.RFQ, invites []models.RFQVendorInvite) error {
	rfq.ID = "rfq-1"
	rfq.ReferenceNo = "RFQ-202608-0001"
	rfq.Status = models.RFQStatusSent
	rfq.SentAt = s.w.tick()
	s.w.rfq = rfq
	for i := range invites {
		invites[i].ID = fmt.Sprintf("invite-%d", i+1)
		invites[i].RFQID = rfq.ID
		invites[i].InvitedAt = rfq.SentAt
	}
	s.w.invites = invites
	return nil
}

func (s *flowRFQStore) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	if s.w.rfq == nil || s.w.rfq.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.w.rfq
	return &copied, nil
}

func (s *flowRFQStore) ListInvitesByRFQ(ctx context.Context, rfqID string) ([]models.RFQVendorInvite, error) {
	return append([]models.RFQVendorInvite(nil), s.w.invites...), nil
}

func (s *flowRFQStore) GetInviteByToken(ctx context.Context, token string) (*models.RFQVendorInvite, error) {
	for _, invite := range s.w.invites {
		if invite.Token == token {
			copied := invite
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *flowRFQStore) GetInviteForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RFQVendorInvite, error) {
	for _, invite := range s.w.invites {
		if invite.ID == id {
			copied := invite
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *flowRFQStore) MarkInviteConsumedWithTx(ctx context.Context, tx *sqlx.Tx, inviteID, quotationID string) error {
	for i := range s.w.invites {
		if s.w.invites[i].ID == inviteID {
			s.w.invites[i].QuotationID = &quotationID
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *flowRFQStore) CloseWithTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	if s.w.rfq == nil || s.w.rfq.ID != id {
		return sql.ErrNoRows
	}
	closedAt := s.w.tick()
	s.w.rfq.Status = models.RFQStatusClosed
	s.w.rfq.ClosedAt = &closedAt
	return nil
}

type flowQuotationStore struct{ w *flowWorld }

func (s *flowQuotationStore) CreateWithTx(ctx context.Context, tx *sqlx.Tx, q *models.Quotation) error {
	s.w.seq++
	q.ID = fmt.Sprintf("quote-%d", s.w.seq)
	q.ReferenceNo = fmt.Sprintf("QT-202608-%04d", s.w.seq)
	q.Status = models.QuotationStatusSubmitted
	q.SubmittedAt = s.w.tick()
	s.w.quotes[q.ID] = q
	return nil
}

func (s *flowQuotationStore) GetByID(ctx context.Context, id string) (*models.Quotation, error) {
	q, ok := s.w.quotes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *q
	return &copied, nil
}

func (s *flowQuotationStore) ListByRFQForUpdate(ctx context.Context, tx *sqlx.Tx, rfqID string) ([]models.Quotation, error) {
	var out []models.Quotation
	for i := 1; i <= s.w.seq; i++ {
		q := s.w.quotes[fmt.Sprintf("quote-%d", i)]
		if q != nil && q.RFQID == rfqID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *flowQuotationStore) UpdateRankWithTx(ctx context.Context, tx *sqlx.Tx, id string, rank int) error {
	q, ok := s.w.quotes[id]
	if !ok {
		return sql.ErrNoRows
	}
	q.Rank = &rank
	return nil
}

func (s *flowQuotationStore) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.QuotationStatus) error {
	q, ok := s.w.quotes[id]
	if !ok || q.Status != from {
		return sql.ErrNoRows
	}
	q.Status = to
	return nil
}

type flowOrderStore struct{ w *flowWorld }

func (s *flowOrderStore) CreateWithTx(ctx context.Context, tx *sqlx.Tx, po *models.PurchaseOrder) error {
	po.ID = "po-1"
	po.ReferenceNo = "PO-202608-0001"
	po.CreatedAt = s.w.tick()
	s.w.order = po
	return nil
}

func (s *flowOrderStore) GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	if s.w.order == nil || s.w.order.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.w.order
	return &copied, nil
}

func (s *flowOrderStore) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PurchaseOrder, error) {
	return s.GetByID(ctx, id)
}

func (s *flowOrderStore) StampApprovalWithTx(ctx context.Context, tx *sqlx.Tx, id string, level models.ApprovalLevel, approvedBy string, approvedAt time.Time) error {
	if s.w.order == nil || s.w.order.ID != id || s.w.order.Status != level.PendingStatus() {
		return sql.ErrNoRows
	}
	s.w.order.Status = level.NextStatus()
	switch level {
	case models.ApprovalLevelL1:
		s.w.order.L1ApprovedBy, s.w.order.L1ApprovedAt = &approvedBy, &approvedAt
	case models.ApprovalLevelL2:
		s.w.order.L2ApprovedBy, s.w.order.L2ApprovedAt = &approvedBy, &approvedAt
	case models.ApprovalLevelL3:
		s.w.order.L3ApprovedBy, s.w.order.L3ApprovedAt = &approvedBy, &approvedAt
	}
	return nil
}

func (s *flowOrderStore) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseOrderStatus) error {
	if s.w.order == nil || s.w.order.ID != id || s.w.order.Status != from {
		return sql.ErrNoRows
	}
	s.w.order.Status = to
	return nil
}

// TestProcurementFlowHousekeepingSupplies walks one purchase from the
// initial request through RFQ, three competing vendor quotes, ranked
// selection, the full three-level approval chain and issuance.
func TestProcurementFlowHousekeepingSupplies(t *testing.T) {
	world := newFlowWorld()
	world.vendors = []models.Vendor{
		{ID: "vendor-a", SocietyID: "soc-1", Name: "Apex Cleaning Co", Category: "HOUSEKEEPING", Approved: true},
		{ID: "vendor-b", SocietyID: "soc-1", Name: "Brightway Supplies", Category: "HOUSEKEEPING", Approved: true},
		{ID: "vendor-c", SocietyID: "soc-1", Name: "CityServe Traders", Category: "HOUSEKEEPING", Approved: true},
	}

	requests := &flowRequestStore{w: world}
	vendors := &flowVendorDirectory{w: world}
	rfqs := &flowRFQStore{w: world}
	quotations := &flowQuotationStore{w: world}
	orders := &flowOrderStore{w: world}

	tx, mock := newTxProviderMock(t)
	// SendRFQ, three submissions, PO creation, L1 approval.
	for i := 0; i < 6; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	// Out-of-turn L3 attempt rolls back.
	mock.ExpectBegin()
	mock.ExpectRollback()
	// L2, L3, issue.
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	ranker := NewRankingService(quotations, tx, nil)
	requestSvc := NewRequestService(requests, rfqs, vendors, tx, nil, nil, nil, 0)
	portalSvc := NewVendorPortalService(rfqs, quotations, requests, ranker, nil, tx, nil, nil, nil, 0)
	poSvc := NewPOService(orders, rfqs, quotations, requests, vendors, tx, nil, nil, nil)

	ctx := context.Background()
	requester := &models.JWTClaims{UserID: "member-1", SocietyID: "soc-1", Role: models.RoleCommitteeMember}
	treasurer := &models.JWTClaims{UserID: "treasurer-1", SocietyID: "soc-1", Role: models.RoleTreasurer}
	admin := &models.JWTClaims{UserID: "admin-1", SocietyID: "soc-1", Role: models.RoleSocietyAdmin}

	pr, err := requestSvc.Create(ctx, dto.CreatePurchaseRequestRequest{
		Title:    "Housekeeping Supplies",
		Category: "HOUSEKEEPING",
		Draft:    true,
		Items: []dto.RequestItemInput{
			{Description: "Floor cleaner 5L", Quantity: 10, Unit: "can", EstimatedPrice: "450.00"},
			{Description: "Garbage bags", Quantity: 50, Unit: "roll", EstimatedPrice: "80.00"},
		},
	}, requester)
	require.NoError(t, err)
	require.Equal(t, models.PRStatusDraft, pr.Status)

	_, err = requestSvc.Open(ctx, pr.ID, requester)
	require.NoError(t, err)

	rfq, err := requestSvc.SendRFQ(ctx, pr.ID, dto.SendRFQRequest{
		Deadline: time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		Terms:    "Delivery within 7 days",
	}, requester)
	require.NoError(t, err)
	require.Len(t, world.invites, 3)
	require.Equal(t, models.PRStatusRFQSent, world.pr.Status)

	tokenFor := func(vendorID string) string {
		for _, invite := range world.invites {
			if invite.VendorID == vendorID {
				return invite.Token
			}
		}
		t.Fatalf("no invite for %s", vendorID)
		return ""
	}

	// Single-line quotes at 18% GST: A totals 8427.10, B 8900.00,
	// C 9415.00.
	submit := func(vendorID, unitPrice string) *models.Quotation {
		q, submitErr := portalSvc.SubmitQuotation(ctx, dto.SubmitQuotationRequest{
			Token: tokenFor(vendorID),
			Items: []dto.QuoteItemInput{
				{Description: "Housekeeping bundle", Quantity: 1, UnitPrice: unitPrice, GSTRate: "18"},
			},
		})
		require.NoError(t, submitErr)
		return q
	}

	quoteA := submit("vendor-a", "7141.61")
	quoteB := submit("vendor-b", "7542.37")
	quoteC := submit("vendor-c", "7978.81")

	assert.Equal(t, money.Paise(842710), quoteA.TotalAmount)
	assert.Equal(t, money.Paise(890000), quoteB.TotalAmount)
	assert.Equal(t, money.Paise(941500), quoteC.TotalAmount)
	assert.Equal(t, models.PRStatusQuotesReceived, world.pr.Status)

	require.NotNil(t, world.quotes[quoteA.ID].Rank)
	assert.Equal(t, 1, *world.quotes[quoteA.ID].Rank)
	assert.Equal(t, 2, *world.quotes[quoteB.ID].Rank)
	assert.Equal(t, 3, *world.quotes[quoteC.ID].Rank)

	// Rank 1 selection needs no justification remark.
	po, err := poSvc.CreateFromRFQ(ctx, dto.CreatePurchaseOrderRequest{
		RFQID:       rfq.ID,
		QuotationID: quoteA.ID,
	}, requester)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPendingL1, po.Status)
	assert.Equal(t, "vendor-a", po.VendorID)
	assert.Equal(t, models.QuotationStatusAccepted, world.quotes[quoteA.ID].Status)
	assert.Equal(t, models.QuotationStatusRejected, world.quotes[quoteB.ID].Status)
	assert.Equal(t, models.QuotationStatusRejected, world.quotes[quoteC.ID].Status)
	assert.Equal(t, models.RFQStatusClosed, world.rfq.Status)
	assert.Equal(t, models.PRStatusPOCreated, world.pr.Status)

	po, err = poSvc.Approve(ctx, po.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPendingL2, po.Status)

	// L3 may not sign before L2.
	_, err = poSvc.Approve(ctx, po.ID, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongLevel.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.POStatusPendingL2, world.order.Status)

	po, err = poSvc.Approve(ctx, po.ID, treasurer)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPendingL3, po.Status)

	po, err = poSvc.Approve(ctx, po.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusApproved, po.Status)
	require.NotNil(t, world.order.L1ApprovedBy)
	require.NotNil(t, world.order.L2ApprovedBy)
	require.NotNil(t, world.order.L3ApprovedBy)
	assert.Equal(t, "member-1", *world.order.L1ApprovedBy)
	assert.Equal(t, "treasurer-1", *world.order.L2ApprovedBy)
	assert.Equal(t, "admin-1", *world.order.L3ApprovedBy)

	po, err = poSvc.Issue(ctx, po.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusIssued, po.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
