package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type rankingQuotationStore interface {
	ListByRFQForUpdate(ctx context.Context, tx *sqlx.Tx, rfqID string) ([]models.Quotation, error)
	UpdateRankWithTx(ctx context.Context, tx *sqlx.Tx, id string, rank int) error
}

// RankingService orders the submitted quotations of one RFQ by total
// price into dense ranks 1..N. Ranking is idempotent and side-effect
// free to call repeatedly; a late quotation just triggers a re-rank.
type RankingService struct {
	quotations rankingQuotationStore
	tx         txProvider
	logger     *zap.Logger
}

// NewRankingService constructs the service.
func NewRankingService(quotations rankingQuotationStore, tx txProvider, logger *zap.Logger) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{quotations: quotations, tx: tx, logger: logger}
}

// rankAssignment pairs a quotation with its computed rank.
type rankAssignment struct {
	QuotationID string
	Rank        int
}

// assignRanks computes dense ranks over SUBMITTED quotations only,
// ascending by total amount, tie-break on earlier submission.
// Quotations already decided keep their historical rank.
func assignRanks(quotations []models.Quotation) []rankAssignment {
	open := make([]models.Quotation, 0, len(quotations))
	for _, q := range quotations {
		if q.Status == models.QuotationStatusSubmitted {
			open = append(open, q)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].TotalAmount != open[j].TotalAmount {
			return open[i].TotalAmount < open[j].TotalAmount
		}
		return open[i].SubmittedAt.Before(open[j].SubmittedAt)
	})

	assignments := make([]rankAssignment, len(open))
	for i, q := range open {
		assignments[i] = rankAssignment{QuotationID: q.ID, Rank: i + 1}
	}
	return assignments
}

// Rerank recomputes ranks for an RFQ in its own transaction.
func (s *RankingService) Rerank(ctx context.Context, rfqID string) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin ranking transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.RerankWithTx(ctx, tx, rfqID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit ranking")
	}
	return nil
}

// RerankWithTx recomputes ranks under a caller-owned transaction; the
// quotation rows stay locked until that transaction resolves.
func (s *RankingService) RerankWithTx(ctx context.Context, tx *sqlx.Tx, rfqID string) error {
	quotations, err := s.quotations.ListByRFQForUpdate(ctx, tx, rfqID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock quotations for ranking")
	}

	current := make(map[string]*int, len(quotations))
	for _, q := range quotations {
		current[q.ID] = q.Rank
	}

	for _, assignment := range assignRanks(quotations) {
		if prev := current[assignment.QuotationID]; prev != nil && *prev == assignment.Rank {
			continue
		}
		if err := s.quotations.UpdateRankWithTx(ctx, tx, assignment.QuotationID, assignment.Rank); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write quotation rank")
		}
	}
	return nil
}
