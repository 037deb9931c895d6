package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/internal/repository"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

type nfaStore interface {
	Create(ctx context.Context, nfa *models.NoteForApproval) error
	GetByID(ctx context.Context, id string) (*models.NoteForApproval, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.NoteForApproval, error)
	InsertApprovalWithTx(ctx context.Context, tx *sqlx.Tx, approval *models.NFAApproval) error
	HasVoted(ctx context.Context, nfaID, userID string) (bool, error)
	ListApprovals(ctx context.Context, nfaID string) ([]models.NFAApproval, error)
	FreezeQuorumWithTx(ctx context.Context, tx *sqlx.Tx, id string, totalMembers, quorum int, status models.NFAStatus) error
	UpdateTallyWithTx(ctx context.Context, tx *sqlx.Tx, id string, approvals, rejections int, status models.NFAStatus) error
	StampTreasurerWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.NFAStatus, decidedBy string, decidedAt time.Time, remarks *string) error
	UpdateStatus(ctx context.Context, id string, from, to models.NFAStatus) error
	CountExecMembers(ctx context.Context, societyID string) (int, error)
}

// NFAService runs the quorum-based approval route: parallel committee
// voting to a majority quorum, then a single trailing treasurer
// decision.
type NFAService struct {
	nfas      nfaStore
	tx        txProvider
	events    eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	maxQuotes int
}

// NewNFAService wires the note-for-approval dependencies.
// maxQuotesPerItem caps the competing vendor prices per line; zero
// means the default of three.
func NewNFAService(nfas nfaStore, tx txProvider, events eventEmitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, maxQuotesPerItem int) *NFAService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopEmitter{}
	}
	if maxQuotesPerItem <= 0 {
		maxQuotesPerItem = 3
	}
	return &NFAService{nfas: nfas, tx: tx, events: events, metrics: metrics, validator: validate, logger: logger, maxQuotes: maxQuotesPerItem}
}

// quorumFor returns half the committee rounded up. Five members need
// three approvals, four members need two.
func quorumFor(totalMembers int) int {
	return (totalMembers + 1) / 2
}

// Create opens a draft NFA. Each line carries up to three competing
// vendor prices; the total is computed from the selected quote per
// line.
func (s *NFAService) Create(ctx context.Context, req dto.CreateNFARequest, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid nfa payload")
	}

	items := make([]models.NFAItem, 0, len(req.Items))
	lines := make([]money.Line, 0, len(req.Items))
	for i, input := range req.Items {
		if len(input.Quotes) > s.maxQuotes {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: at most %d competing quotes allowed", i+1, s.maxQuotes))
		}
		if input.SelectedQuote < 1 || input.SelectedQuote > len(input.Quotes) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: selected quote %d is out of range", i+1, input.SelectedQuote))
		}
		gstRate, err := money.ParseRate(input.GSTRate)
		if err != nil {
			return nil, err
		}

		quotes := make([]models.NFAItemQuote, 0, len(input.Quotes))
		for j, quoteInput := range input.Quotes {
			unitPrice, err := money.Parse(quoteInput.UnitPrice)
			if err != nil {
				return nil, err
			}
			if unitPrice < 0 {
				return nil, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("item %d quote %d: unit price must not be negative", i+1, j+1))
			}
			quotes = append(quotes, models.NFAItemQuote{VendorID: quoteInput.VendorID, UnitPrice: unitPrice})
		}

		selected := quotes[input.SelectedQuote-1]
		lines = append(lines, money.Line{Quantity: input.Quantity, UnitPrice: selected.UnitPrice, GSTRate: gstRate})
		items = append(items, models.NFAItem{
			Description:   input.Description,
			Quantity:      input.Quantity,
			GSTRate:       gstRate,
			SelectedQuote: input.SelectedQuote,
			Quotes:        quotes,
		})
	}
	totals, err := money.ComputeTotals(lines)
	if err != nil {
		return nil, err
	}

	nfa := &models.NoteForApproval{
		SocietyID:   actor.SocietyID,
		Title:       req.Title,
		Status:      models.NFAStatusDraft,
		TotalAmount: totals.Total,
		CreatedBy:   actor.UserID,
		Items:       items,
	}
	if err := s.nfas.Create(ctx, nfa); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create nfa")
	}
	return nfa, nil
}

// Submit freezes the committee size and quorum on the NFA and moves it
// into voting. A society with no committee members skips straight to
// the treasurer.
func (s *NFAService) Submit(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	nfa, err := s.load(ctx, nfaID, actor)
	if err != nil {
		return nil, err
	}
	if nfa.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if nfa.Status != models.NFAStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("nfa is %s, not DRAFT", nfa.Status))
	}

	totalMembers, err := s.nfas.CountExecMembers(ctx, nfa.SocietyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count committee members")
	}

	target := models.NFAStatusPendingExec
	if totalMembers == 0 {
		target = models.NFAStatusPendingTreasurer
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin submit transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := s.nfas.GetForUpdate(ctx, tx, nfa.ID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock nfa")
		return nil, err
	}
	if locked.Status != models.NFAStatusDraft {
		err = appErrors.Clone(appErrors.ErrStateConflict, "nfa was submitted concurrently")
		return nil, err
	}

	quorum := 0
	if totalMembers > 0 {
		quorum = quorumFor(totalMembers)
	}
	if err = s.nfas.FreezeQuorumWithTx(ctx, tx, locked.ID, totalMembers, quorum, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrStateConflict, "nfa was submitted concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to freeze quorum")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit submit")
		return nil, err
	}

	nfa.TotalExecMembers = totalMembers
	nfa.RequiredExecApprovals = quorum
	nfa.Status = target
	s.emitStatus(nfa, actor.UserID)
	return nfa, nil
}

// CastVote records one committee member's vote and retallies under the
// row lock. Reaching quorum advances to the treasurer; once enough
// members have rejected that quorum can no longer be reached, the NFA
// short-circuits to REJECTED without waiting for remaining votes.
func (s *NFAService) CastVote(ctx context.Context, nfaID string, req dto.CastVoteRequest, actor *models.JWTClaims) (nfa *models.NoteForApproval, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleCommitteeMember {
		return nil, appErrors.ErrForbidden
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin vote transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	nfa, err = s.nfas.GetForUpdate(ctx, tx, nfaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrNotFound
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock nfa")
		return nil, err
	}
	if nfa.SocietyID != actor.SocietyID {
		err = appErrors.ErrForbidden
		return nil, err
	}
	if nfa.Status != models.NFAStatusPendingExec {
		err = appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("nfa is %s, not open for committee voting", nfa.Status))
		return nil, err
	}

	voted, err := s.nfas.HasVoted(ctx, nfa.ID, actor.UserID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing vote")
		return nil, err
	}
	if voted {
		err = appErrors.ErrDuplicateVote
		return nil, err
	}

	approval := &models.NFAApproval{
		NFAID:    nfa.ID,
		UserID:   actor.UserID,
		UserRole: actor.Role,
		Action:   req.Action,
	}
	if req.Remarks != "" {
		approval.Remarks = &req.Remarks
	}
	if err = s.nfas.InsertApprovalWithTx(ctx, tx, approval); err != nil {
		if repository.IsUniqueViolation(err) {
			err = appErrors.ErrDuplicateVote
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
		return nil, err
	}

	approvals := nfa.CurrentExecApprovals
	rejections := nfa.CurrentExecRejections
	if req.Action == models.NFAActionApproved {
		approvals++
	} else {
		rejections++
	}

	status := nfa.Status
	switch {
	case approvals >= nfa.RequiredExecApprovals:
		status = models.NFAStatusPendingTreasurer
	case nfa.TotalExecMembers-rejections < nfa.RequiredExecApprovals:
		// Even if every remaining member approved, quorum is out of
		// reach.
		status = models.NFAStatusRejected
	}

	if err = s.nfas.UpdateTallyWithTx(ctx, tx, nfa.ID, approvals, rejections, status); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update vote tally")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit vote")
		return nil, err
	}

	nfa.CurrentExecApprovals = approvals
	nfa.CurrentExecRejections = rejections
	statusChanged := nfa.Status != status
	nfa.Status = status

	s.metrics.CountNFAVote(string(req.Action))
	if statusChanged {
		s.emitStatus(nfa, actor.UserID)
	}
	return nfa, nil
}

// DecideTreasurer records the trailing single-approver decision.
func (s *NFAService) DecideTreasurer(ctx context.Context, nfaID string, req dto.TreasurerDecisionRequest, actor *models.JWTClaims) (nfa *models.NoteForApproval, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleTreasurer && actor.Role != models.RoleJointTreasurer {
		return nil, appErrors.ErrForbidden
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin decision transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	nfa, err = s.nfas.GetForUpdate(ctx, tx, nfaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrNotFound
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock nfa")
		return nil, err
	}
	if nfa.SocietyID != actor.SocietyID {
		err = appErrors.ErrForbidden
		return nil, err
	}
	if nfa.Status != models.NFAStatusPendingTreasurer {
		err = appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("nfa is %s, not awaiting the treasurer", nfa.Status))
		return nil, err
	}

	status := models.NFAStatusApproved
	if req.Action == models.NFAActionRejected {
		status = models.NFAStatusRejected
	}
	var remarks *string
	if req.Remarks != "" {
		remarks = &req.Remarks
	}
	now := time.Now().UTC()

	if err = s.nfas.StampTreasurerWithTx(ctx, tx, nfa.ID, status, actor.UserID, now, remarks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrStateConflict, "nfa was decided concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp treasurer decision")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit decision")
		return nil, err
	}

	nfa.Status = status
	nfa.TreasurerApprovedBy = &actor.UserID
	nfa.TreasurerApprovedAt = &now
	nfa.TreasurerRemarks = remarks
	s.emitStatus(nfa, actor.UserID)
	return nfa, nil
}

// MarkPOCreated links an approved NFA to procurement execution.
func (s *NFAService) MarkPOCreated(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	return s.advance(ctx, nfaID, actor, models.NFAStatusApproved, models.NFAStatusPOCreated)
}

// MarkCompleted closes out an NFA once the purchase is done.
func (s *NFAService) MarkCompleted(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	nfa, err := s.load(ctx, nfaID, actor)
	if err != nil {
		return nil, err
	}
	if !nfa.Status.CanTransition(models.NFAStatusCompleted) {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("nfa is %s and cannot be completed", nfa.Status))
	}
	if err := s.nfas.UpdateStatus(ctx, nfaID, nfa.Status, models.NFAStatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "nfa was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete nfa")
	}
	nfa.Status = models.NFAStatusCompleted
	s.emitStatus(nfa, actor.UserID)
	return nfa, nil
}

// Get loads one NFA scoped to the actor's society.
func (s *NFAService) Get(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	return s.load(ctx, nfaID, actor)
}

// Approvals returns the vote trail for one NFA.
func (s *NFAService) Approvals(ctx context.Context, nfaID string, actor *models.JWTClaims) ([]models.NFAApproval, error) {
	if _, err := s.load(ctx, nfaID, actor); err != nil {
		return nil, err
	}
	approvals, err := s.nfas.ListApprovals(ctx, nfaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list nfa approvals")
	}
	return approvals, nil
}

func (s *NFAService) advance(ctx context.Context, nfaID string, actor *models.JWTClaims, from, to models.NFAStatus) (*models.NoteForApproval, error) {
	nfa, err := s.load(ctx, nfaID, actor)
	if err != nil {
		return nil, err
	}
	if nfa.Status != from {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("nfa is %s, not %s", nfa.Status, from))
	}
	if err := s.nfas.UpdateStatus(ctx, nfaID, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "nfa was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update nfa status")
	}
	nfa.Status = to
	s.emitStatus(nfa, actor.UserID)
	return nfa, nil
}

func (s *NFAService) load(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	nfa, err := s.nfas.GetByID(ctx, nfaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nfa")
	}
	if nfa.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrForbidden
	}
	return nfa, nil
}

func (s *NFAService) emitStatus(nfa *models.NoteForApproval, actorID string) {
	s.events.Emit(models.DomainEvent{
		Type:      models.EventNFAStatusChanged,
		SocietyID: nfa.SocietyID,
		EntityID:  nfa.ID,
		Status:    string(nfa.Status),
		Payload: map[string]any{
			"reference_no": nfa.ReferenceNo,
			"actor_id":     actorID,
			"approvals":    nfa.CurrentExecApprovals,
			"rejections":   nfa.CurrentExecRejections,
			"quorum":       nfa.RequiredExecApprovals,
		},
	})
}
