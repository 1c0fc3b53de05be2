package model

import (
	"time"

	"github.com/google/uuid"
)

// Venue hosts celebrations. Its country code determines which numbering
// plan numbers are purchased from.
type Venue struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	CountryCode  string    `db:"country_code" json:"country_code"`
	AreaCodeHint *string   `db:"area_code_hint" json:"area_code_hint,omitempty"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Customer is the account that owns an event.
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
