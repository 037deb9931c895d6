package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

type rfqViewStub struct {
	rfq     *models.RFQ
	invites []models.RFQVendorInvite
}

func (s *rfqViewStub) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	if s.rfq == nil {
		return nil, sql.ErrNoRows
	}
	return s.rfq, nil
}

func (s *rfqViewStub) ListInvitesByRFQ(ctx context.Context, rfqID string) ([]models.RFQVendorInvite, error) {
	return s.invites, nil
}

type quotationReaderStub struct {
	quotations []models.Quotation
}

func (s *quotationReaderStub) ListByRFQ(ctx context.Context, rfqID string) ([]models.Quotation, error) {
	return s.quotations, nil
}

type vendorReaderStub struct {
	vendors map[string]*models.Vendor
}

func (s *vendorReaderStub) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	if v, ok := s.vendors[id]; ok {
		return v, nil
	}
	return nil, sql.ErrNoRows
}

func statementFixture() *RFQService {
	submitted := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	rfqs := &rfqViewStub{rfq: &models.RFQ{
		ID: "rfq-1", SocietyID: "soc-1", ReferenceNo: "RFQ-202603-0001", Status: models.RFQStatusSent,
	}}
	quotations := &quotationReaderStub{quotations: []models.Quotation{
		{
			ID: "q-2", RFQID: "rfq-1", VendorID: "vendor-2", ReferenceNo: "QTN-202603-0002",
			Status: models.QuotationStatusSubmitted, Rank: intPtr(2),
			Subtotal: money.Paise(1100000), GSTAmount: money.Paise(198000), TotalAmount: money.Paise(1298000),
			SubmittedAt: submitted.Add(time.Hour),
		},
		{
			ID: "q-1", RFQID: "rfq-1", VendorID: "vendor-1", ReferenceNo: "QTN-202603-0001",
			Status: models.QuotationStatusSubmitted, Rank: intPtr(1),
			Subtotal: money.Paise(900000), GSTAmount: money.Paise(162000), TotalAmount: money.Paise(1062000),
			SubmittedAt: submitted,
		},
	}}
	vendors := &vendorReaderStub{vendors: map[string]*models.Vendor{
		"vendor-1": {ID: "vendor-1", Name: "Sharma Electricals"},
	}}
	return NewRFQService(rfqs, quotations, vendors, nil)
}

func TestRFQQuotationsOrderedByRank(t *testing.T) {
	service := statementFixture()

	quotations, err := service.Quotations(context.Background(), "rfq-1", requesterClaims())
	require.NoError(t, err)
	require.Len(t, quotations, 2)
	assert.Equal(t, "q-1", quotations[0].ID)
	assert.Equal(t, "q-2", quotations[1].ID)
}

func TestRFQQuotationsPutUnrankedLast(t *testing.T) {
	service := statementFixture()
	stub := service.quotations.(*quotationReaderStub)
	stub.quotations = append([]models.Quotation{{
		ID: "q-late", RFQID: "rfq-1", VendorID: "vendor-3", Status: models.QuotationStatusRejected,
	}}, stub.quotations...)

	quotations, err := service.Quotations(context.Background(), "rfq-1", requesterClaims())
	require.NoError(t, err)
	require.Len(t, quotations, 3)
	assert.Equal(t, "q-late", quotations[2].ID)
}

func TestRFQComparativeStatementCSV(t *testing.T) {
	service := statementFixture()

	payload, contentType, err := service.ComparativeStatement(context.Background(), "rfq-1", StatementCSV, requesterClaims())
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	statement := string(payload)
	lines := strings.Split(strings.TrimSpace(statement), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rank,Vendor,Quotation,Subtotal,GST,Total,Status,Submitted", strings.TrimSpace(lines[0]))
	// Rank 1 row comes first and carries the resolved vendor name.
	assert.Contains(t, lines[1], "Sharma Electricals")
	assert.Contains(t, lines[1], "10620.00")
	// Unresolvable vendor falls back to the raw ID.
	assert.Contains(t, lines[2], "vendor-2")
}

func TestRFQComparativeStatementPDF(t *testing.T) {
	service := statementFixture()

	payload, contentType, err := service.ComparativeStatement(context.Background(), "rfq-1", StatementPDF, requesterClaims())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestRFQComparativeStatementUnknownFormat(t *testing.T) {
	service := statementFixture()

	_, _, err := service.ComparativeStatement(context.Background(), "rfq-1", StatementFormat("xlsx"), requesterClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRFQGetScopedToSociety(t *testing.T) {
	service := statementFixture()

	_, _, err := service.Get(context.Background(), "rfq-1", &models.JWTClaims{
		UserID: "user-9", SocietyID: "soc-other", Role: models.RoleCommitteeMember,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
