package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/pkg/money"
)

func newPORepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPurchaseOrderRepositoryCreateGeneratesReferenceNo(t *testing.T) {
	db, mock, cleanup := newPORepoMock(t)
	defer cleanup()

	repo := NewPurchaseOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs("purchase_orders/soc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(RIGHT(reference_no, 4) AS INTEGER)), 0) FROM purchase_orders")).
		WithArgs("soc-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchase_orders")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tx, err := db.Beginx()
	require.NoError(t, err)
	po := &models.PurchaseOrder{
		SocietyID:   "soc-1",
		RFQID:       "rfq-1",
		QuotationID: "quote-1",
		VendorID:    "vendor-1",
		Status:      models.POStatusPendingL1,
		TotalAmount: money.Paise(1062000),
		CreatedBy:   "user-1",
	}
	require.NoError(t, repo.CreateWithTx(context.Background(), tx, po))
	require.NotEmpty(t, po.ID)
	require.Equal(t, "PO-"+time.Now().UTC().Format("200601")+"-0008", po.ReferenceNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseOrderRepositoryStampApprovalUsesLevelColumns(t *testing.T) {
	db, mock, cleanup := newPORepoMock(t)
	defer cleanup()

	repo := NewPurchaseOrderRepository(db)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("l2_approved_by = $2, l2_approved_at = $3")).
		WithArgs(models.POStatusPendingL3, "treasurer-1", now, "po-1", models.POStatusPendingL2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.StampApprovalWithTx(context.Background(), tx, "po-1", models.ApprovalLevelL2, "treasurer-1", now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseOrderRepositoryStampApprovalGuardsOnPendingStatus(t *testing.T) {
	db, mock, cleanup := newPORepoMock(t)
	defer cleanup()

	repo := NewPurchaseOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchase_orders")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.StampApprovalWithTx(context.Background(), tx, "po-1", models.ApprovalLevelL1, "member-1", time.Now().UTC())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPurchaseOrderRepositoryIssueStampsIssuedAt(t *testing.T) {
	db, mock, cleanup := newPORepoMock(t)
	defer cleanup()

	repo := NewPurchaseOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("issued_at = $2")).
		WithArgs(models.POStatusIssued, sqlmock.AnyArg(), "po-1", models.POStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.UpdateStatusWithTx(context.Background(), tx, "po-1", models.POStatusApproved, models.POStatusIssued)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
