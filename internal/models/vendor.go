package models

import "time"

// Vendor is a read-only record owned by the external vendor directory.
type Vendor struct {
	ID        string    `db:"id" json:"id"`
	SocietyID string    `db:"society_id" json:"society_id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	Email     string    `db:"email" json:"email"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
