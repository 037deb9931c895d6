package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/pkg/money"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxdb.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func intPtr(v int) *int { return &v }

func quote(id string, total int64, status models.QuotationStatus, submittedAt time.Time, rank *int) models.Quotation {
	return models.Quotation{
		ID:          id,
		Status:      status,
		TotalAmount: money.Paise(total),
		SubmittedAt: submittedAt,
		Rank:        rank,
	}
}

type rankingStoreStub struct {
	quotations []models.Quotation
	listErr    error
	updates    map[string]int
}

func (s *rankingStoreStub) ListByRFQForUpdate(ctx context.Context, tx *sqlx.Tx, rfqID string) ([]models.Quotation, error) {
	return s.quotations, s.listErr
}

func (s *rankingStoreStub) UpdateRankWithTx(ctx context.Context, tx *sqlx.Tx, id string, rank int) error {
	if s.updates == nil {
		s.updates = make(map[string]int)
	}
	s.updates[id] = rank
	return nil
}

func TestAssignRanksOrdersByTotalThenSubmission(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	quotations := []models.Quotation{
		quote("q-expensive", 500000, models.QuotationStatusSubmitted, base, nil),
		quote("q-cheap", 100000, models.QuotationStatusSubmitted, base.Add(time.Hour), nil),
		quote("q-mid", 250000, models.QuotationStatusSubmitted, base.Add(2*time.Hour), nil),
	}

	assignments := assignRanks(quotations)
	require.Len(t, assignments, 3)
	assert.Equal(t, rankAssignment{QuotationID: "q-cheap", Rank: 1}, assignments[0])
	assert.Equal(t, rankAssignment{QuotationID: "q-mid", Rank: 2}, assignments[1])
	assert.Equal(t, rankAssignment{QuotationID: "q-expensive", Rank: 3}, assignments[2])
}

func TestAssignRanksBreaksTiesByEarlierSubmission(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	quotations := []models.Quotation{
		quote("q-late", 100000, models.QuotationStatusSubmitted, base.Add(time.Hour), nil),
		quote("q-early", 100000, models.QuotationStatusSubmitted, base, nil),
	}

	assignments := assignRanks(quotations)
	require.Len(t, assignments, 2)
	assert.Equal(t, "q-early", assignments[0].QuotationID)
	assert.Equal(t, 1, assignments[0].Rank)
	assert.Equal(t, "q-late", assignments[1].QuotationID)
	assert.Equal(t, 2, assignments[1].Rank)
}

func TestAssignRanksSkipsDecidedQuotations(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	quotations := []models.Quotation{
		quote("q-rejected", 50000, models.QuotationStatusRejected, base, intPtr(1)),
		quote("q-open", 100000, models.QuotationStatusSubmitted, base.Add(time.Minute), nil),
	}

	assignments := assignRanks(quotations)
	require.Len(t, assignments, 1)
	assert.Equal(t, "q-open", assignments[0].QuotationID)
	assert.Equal(t, 1, assignments[0].Rank)
}

func TestRerankWritesOnlyChangedRanks(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &rankingStoreStub{quotations: []models.Quotation{
		quote("q-cheap", 100000, models.QuotationStatusSubmitted, base, intPtr(1)),
		quote("q-new", 150000, models.QuotationStatusSubmitted, base.Add(time.Hour), nil),
		quote("q-expensive", 200000, models.QuotationStatusSubmitted, base.Add(2*time.Hour), intPtr(2)),
	}}

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := NewRankingService(store, tx, nil)
	require.NoError(t, service.Rerank(context.Background(), "rfq-1"))

	assert.Equal(t, map[string]int{"q-new": 2, "q-expensive": 3}, store.updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
