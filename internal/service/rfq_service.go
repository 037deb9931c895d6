package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/export"
)

type rfqViewStore interface {
	GetByID(ctx context.Context, id string) (*models.RFQ, error)
	ListInvitesByRFQ(ctx context.Context, rfqID string) ([]models.RFQVendorInvite, error)
}

type rfqQuotationReader interface {
	ListByRFQ(ctx context.Context, rfqID string) ([]models.Quotation, error)
}

type rfqVendorReader interface {
	GetByID(ctx context.Context, id string) (*models.Vendor, error)
}

// StatementFormat selects the comparative statement rendering.
type StatementFormat string

const (
	StatementCSV StatementFormat = "csv"
	StatementPDF StatementFormat = "pdf"
)

// RFQService is the committee-facing read side of an RFQ: who was
// invited, what came back, and the comparative statement used in
// approval meetings.
type RFQService struct {
	rfqs       rfqViewStore
	quotations rfqQuotationReader
	vendors    rfqVendorReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewRFQService wires the RFQ read-side dependencies.
func NewRFQService(rfqs rfqViewStore, quotations rfqQuotationReader, vendors rfqVendorReader, logger *zap.Logger) *RFQService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RFQService{
		rfqs:       rfqs,
		quotations: quotations,
		vendors:    vendors,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Get loads one RFQ with its invites, scoped to the actor's society.
func (s *RFQService) Get(ctx context.Context, rfqID string, actor *models.JWTClaims) (*models.RFQ, []models.RFQVendorInvite, error) {
	rfq, err := s.load(ctx, rfqID, actor)
	if err != nil {
		return nil, nil, err
	}
	invites, err := s.rfqs.ListInvitesByRFQ(ctx, rfqID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rfq invites")
	}
	return rfq, invites, nil
}

// Quotations returns an RFQ's quotations ordered by rank, unranked
// last.
func (s *RFQService) Quotations(ctx context.Context, rfqID string, actor *models.JWTClaims) ([]models.Quotation, error) {
	if _, err := s.load(ctx, rfqID, actor); err != nil {
		return nil, err
	}
	quotations, err := s.quotations.ListByRFQ(ctx, rfqID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotations")
	}
	sort.SliceStable(quotations, func(i, j int) bool {
		ri, rj := quotations[i].Rank, quotations[j].Rank
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri < *rj
		}
	})
	return quotations, nil
}

// ComparativeStatement renders the ranked quotation table the
// committee reviews before selecting a vendor.
func (s *RFQService) ComparativeStatement(ctx context.Context, rfqID string, format StatementFormat, actor *models.JWTClaims) ([]byte, string, error) {
	rfq, err := s.load(ctx, rfqID, actor)
	if err != nil {
		return nil, "", err
	}
	quotations, err := s.Quotations(ctx, rfqID, actor)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Rank", "Vendor", "Quotation", "Subtotal", "GST", "Total", "Status", "Submitted"}
	rows := make([]map[string]string, 0, len(quotations))
	for _, q := range quotations {
		rank := "-"
		if q.Rank != nil {
			rank = fmt.Sprintf("%d", *q.Rank)
		}
		vendorName := q.VendorID
		if vendor, vErr := s.vendors.GetByID(ctx, q.VendorID); vErr == nil {
			vendorName = vendor.Name
		} else {
			s.logger.Warn("vendor lookup failed for statement", zap.String("vendor_id", q.VendorID), zap.Error(vErr))
		}
		rows = append(rows, map[string]string{
			"Rank":      rank,
			"Vendor":    vendorName,
			"Quotation": q.ReferenceNo,
			"Subtotal":  q.Subtotal.String(),
			"GST":       q.GSTAmount.String(),
			"Total":     q.TotalAmount.String(),
			"Status":    string(q.Status),
			"Submitted": q.SubmittedAt.Format("02 Jan 2006 15:04"),
		})
	}
	dataset := export.Dataset{Headers: headers, Rows: rows}
	title := fmt.Sprintf("Comparative Statement %s", rfq.ReferenceNo)

	switch format {
	case StatementPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement pdf")
		}
		return payload, "application/pdf", nil
	case StatementCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *RFQService) load(ctx context.Context, rfqID string, actor *models.JWTClaims) (*models.RFQ, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	rfq, err := s.rfqs.GetByID(ctx, rfqID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rfq")
	}
	if rfq.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrForbidden
	}
	return rfq, nil
}
