package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// VendorRepository reads the vendor directory. Vendor records are owned
// by the external vendor-management collaborator; this core never
// writes them.
type VendorRepository struct {
	db *sqlx.DB
}

// NewVendorRepository constructs the repository.
func NewVendorRepository(db *sqlx.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// ListApprovedVendors returns approved vendors for a society category.
func (r *VendorRepository) ListApprovedVendors(ctx context.Context, societyID, category string) ([]models.Vendor, error) {
	const query = `SELECT id, society_id, name, category, email, approved, created_at
	FROM vendors WHERE society_id = $1 AND category = $2 AND approved = TRUE ORDER BY name`
	var vendors []models.Vendor
	if err := r.db.SelectContext(ctx, &vendors, query, societyID, category); err != nil {
		return nil, fmt.Errorf("list approved vendors: %w", err)
	}
	return vendors, nil
}

// GetByID fetches a single vendor.
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	const query = `SELECT id, society_id, name, category, email, approved, created_at FROM vendors WHERE id = $1`
	var vendor models.Vendor
	if err := r.db.GetContext(ctx, &vendor, query, id); err != nil {
		return nil, err
	}
	return &vendor, nil
}
