package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
)

type nfaStoreStub struct {
	nfa         *models.NoteForApproval
	created     *models.NoteForApproval
	execMembers int
	approvals   []models.NFAApproval
	voted       bool
	insertErr   error

	frozenTotal  int
	frozenQuorum int
	frozenStatus models.NFAStatus

	tallyApprovals  int
	tallyRejections int
	tallyStatus     models.NFAStatus

	treasurerStatus models.NFAStatus
	statusUpdates   []models.NFAStatus
}

func (s *nfaStoreStub) Create(ctx context.Context, nfa *models.NoteForApproval) error {
	s.created = nfa
	return nil
}

func (s *nfaStoreStub) GetByID(ctx context.Context, id string) (*models.NoteForApproval, error) {
	if s.nfa == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.nfa
	return &copied, nil
}

func (s *nfaStoreStub) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.NoteForApproval, error) {
	return s.GetByID(ctx, id)
}

func (s *nfaStoreStub) InsertApprovalWithTx(ctx context.Context, tx *sqlx.Tx, approval *models.NFAApproval) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.approvals = append(s.approvals, *approval)
	return nil
}

func (s *nfaStoreStub) HasVoted(ctx context.Context, nfaID, userID string) (bool, error) {
	return s.voted, nil
}

func (s *nfaStoreStub) ListApprovals(ctx context.Context, nfaID string) ([]models.NFAApproval, error) {
	return s.approvals, nil
}

func (s *nfaStoreStub) FreezeQuorumWithTx(ctx context.Context, tx *sqlx.Tx, id string, totalMembers, quorum int, status models.NFAStatus) error {
	s.frozenTotal = totalMembers
	s.frozenQuorum = quorum
	s.frozenStatus = status
	return nil
}

func (s *nfaStoreStub) UpdateTallyWithTx(ctx context.Context, tx *sqlx.Tx, id string, approvals, rejections int, status models.NFAStatus) error {
	s.tallyApprovals = approvals
	s.tallyRejections = rejections
	s.tallyStatus = status
	return nil
}

func (s *nfaStoreStub) StampTreasurerWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.NFAStatus, decidedBy string, decidedAt time.Time, remarks *string) error {
	s.treasurerStatus = status
	return nil
}

func (s *nfaStoreStub) UpdateStatus(ctx context.Context, id string, from, to models.NFAStatus) error {
	s.statusUpdates = append(s.statusUpdates, to)
	return nil
}

func (s *nfaStoreStub) CountExecMembers(ctx context.Context, societyID string) (int, error) {
	return s.execMembers, nil
}

func pendingExecNFA(total, quorum, approvals, rejections int) *models.NoteForApproval {
	return &models.NoteForApproval{
		ID:                    "nfa-1",
		SocietyID:             "soc-1",
		ReferenceNo:           "NFA-202603-0001",
		Status:                models.NFAStatusPendingExec,
		TotalExecMembers:      total,
		RequiredExecApprovals: quorum,
		CurrentExecApprovals:  approvals,
		CurrentExecRejections: rejections,
		CreatedBy:             "user-creator",
	}
}

func committeeClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, SocietyID: "soc-1", Role: models.RoleCommitteeMember}
}

func TestNFACreateComputesTotalFromSelectedQuotes(t *testing.T) {
	store := &nfaStoreStub{}
	service := NewNFAService(store, nil, nil, nil, nil, nil, 0)

	nfa, err := service.Create(context.Background(), dto.CreateNFARequest{
		Title: "Diwali decorations",
		Items: []dto.NFAItemInput{
			{
				Description:   "String lights",
				Quantity:      10,
				GSTRate:       "18",
				SelectedQuote: 2,
				Quotes: []dto.NFAItemQuoteInput{
					{VendorID: "v-1", UnitPrice: "500.00"},
					{VendorID: "v-2", UnitPrice: "450.00"},
					{VendorID: "v-3", UnitPrice: "475.00"},
				},
			},
		},
	}, committeeClaims("user-1"))
	require.NoError(t, err)

	// 10 x 450.00 = 4500.00 plus 18% GST = 5310.00.
	assert.Equal(t, "5310.00", nfa.TotalAmount.String())
	assert.Equal(t, models.NFAStatusDraft, nfa.Status)
	require.NotNil(t, store.created)
	assert.Equal(t, 2, store.created.Items[0].SelectedQuote)
}

func TestNFACreateRejectsOutOfRangeSelection(t *testing.T) {
	service := NewNFAService(&nfaStoreStub{}, nil, nil, nil, nil, nil, 0)

	_, err := service.Create(context.Background(), dto.CreateNFARequest{
		Title: "Water pump",
		Items: []dto.NFAItemInput{
			{
				Description:   "Pump",
				Quantity:      1,
				GSTRate:       "18",
				SelectedQuote: 3,
				Quotes:        []dto.NFAItemQuoteInput{{VendorID: "v-1", UnitPrice: "100.00"}},
			},
		},
	}, committeeClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNFASubmitFreezesQuorum(t *testing.T) {
	store := &nfaStoreStub{
		nfa: &models.NoteForApproval{
			ID:        "nfa-1",
			SocietyID: "soc-1",
			Status:    models.NFAStatusDraft,
			CreatedBy: "user-1",
		},
		execMembers: 5,
	}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	nfa, err := service.Submit(context.Background(), "nfa-1", committeeClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusPendingExec, nfa.Status)
	assert.Equal(t, 5, store.frozenTotal)
	assert.Equal(t, 3, store.frozenQuorum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFASubmitWithoutCommitteeGoesToTreasurer(t *testing.T) {
	store := &nfaStoreStub{
		nfa: &models.NoteForApproval{
			ID:        "nfa-1",
			SocietyID: "soc-1",
			Status:    models.NFAStatusDraft,
			CreatedBy: "user-1",
		},
		execMembers: 0,
	}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	nfa, err := service.Submit(context.Background(), "nfa-1", committeeClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusPendingTreasurer, nfa.Status)
	assert.Equal(t, 0, nfa.RequiredExecApprovals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFASubmitOnlyByCreator(t *testing.T) {
	store := &nfaStoreStub{
		nfa: &models.NoteForApproval{
			ID:        "nfa-1",
			SocietyID: "soc-1",
			Status:    models.NFAStatusDraft,
			CreatedBy: "member-9",
		},
		execMembers: 5,
	}
	service := NewNFAService(store, nil, nil, nil, nil, nil, 0)

	_, err := service.Submit(context.Background(), "nfa-1", &models.JWTClaims{
		UserID: "admin-1", SocietyID: "soc-1", Role: models.RoleSocietyAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.NFAStatusDraft, store.nfa.Status)
}

func TestNFAVoteReachingQuorumAdvancesToTreasurer(t *testing.T) {
	// Five members, quorum three, two approvals already in.
	store := &nfaStoreStub{nfa: pendingExecNFA(5, 3, 2, 0)}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	nfa, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-3"))
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusPendingTreasurer, nfa.Status)
	assert.Equal(t, 3, store.tallyApprovals)
	assert.Equal(t, models.NFAStatusPendingTreasurer, store.tallyStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFAVoteShortCircuitsWhenQuorumUnreachable(t *testing.T) {
	// Five members, quorum three: a third rejection leaves only two
	// possible approvals, so the NFA is rejected without waiting.
	store := &nfaStoreStub{nfa: pendingExecNFA(5, 3, 0, 2)}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	nfa, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action:  models.NFAActionRejected,
		Remarks: "over budget",
	}, committeeClaims("member-3"))
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusRejected, nfa.Status)
	assert.Equal(t, 3, store.tallyRejections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFAVoteStaysPendingMidway(t *testing.T) {
	store := &nfaStoreStub{nfa: pendingExecNFA(5, 3, 1, 0)}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	nfa, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-2"))
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusPendingExec, nfa.Status)
	assert.Equal(t, 2, nfa.CurrentExecApprovals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFAVoteDuplicateCaughtBeforeInsert(t *testing.T) {
	store := &nfaStoreStub{
		nfa:   pendingExecNFA(5, 3, 1, 0),
		voted: true,
	}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	_, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateVote.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.approvals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFAVoteDuplicateIsRejected(t *testing.T) {
	store := &nfaStoreStub{
		nfa:       pendingExecNFA(5, 3, 1, 0),
		insertErr: &pq.Error{Code: "23505"},
	}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	_, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateVote.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFAVoteRequiresCommitteeRole(t *testing.T) {
	service := NewNFAService(&nfaStoreStub{}, nil, nil, nil, nil, nil, 0)

	_, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, &models.JWTClaims{UserID: "u-1", SocietyID: "soc-1", Role: models.RoleStaff})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestNFAVoteRejectedOutsideVotingWindow(t *testing.T) {
	nfa := pendingExecNFA(5, 3, 3, 0)
	nfa.Status = models.NFAStatusPendingTreasurer
	store := &nfaStoreStub{nfa: nfa}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	_, err := service.CastVote(context.Background(), "nfa-1", dto.CastVoteRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-4"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFATreasurerDecision(t *testing.T) {
	nfa := pendingExecNFA(5, 3, 3, 0)
	nfa.Status = models.NFAStatusPendingTreasurer
	store := &nfaStoreStub{nfa: nfa}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	service := NewNFAService(store, tx, nil, nil, nil, nil, 0)

	decided, err := service.DecideTreasurer(context.Background(), "nfa-1", dto.TreasurerDecisionRequest{
		Action:  models.NFAActionApproved,
		Remarks: "within budget",
	}, &models.JWTClaims{UserID: "treasurer-1", SocietyID: "soc-1", Role: models.RoleTreasurer})
	require.NoError(t, err)
	assert.Equal(t, models.NFAStatusApproved, decided.Status)
	require.NotNil(t, decided.TreasurerApprovedBy)
	assert.Equal(t, "treasurer-1", *decided.TreasurerApprovedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNFATreasurerDecisionRequiresTreasurerRole(t *testing.T) {
	service := NewNFAService(&nfaStoreStub{}, nil, nil, nil, nil, nil, 0)

	_, err := service.DecideTreasurer(context.Background(), "nfa-1", dto.TreasurerDecisionRequest{
		Action: models.NFAActionApproved,
	}, committeeClaims("member-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestNFASocietyScoping(t *testing.T) {
	store := &nfaStoreStub{nfa: pendingExecNFA(5, 3, 0, 0)}
	service := NewNFAService(store, nil, nil, nil, nil, nil, 0)

	_, err := service.Get(context.Background(), "nfa-1", &models.JWTClaims{
		UserID: "outsider", SocietyID: "soc-other", Role: models.RoleCommitteeMember,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
