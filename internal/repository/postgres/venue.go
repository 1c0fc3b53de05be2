package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
)

type venueRepository struct {
	db *sqlx.DB
}

func NewVenueRepository(db *sqlx.DB) repository.VenueRepository {
	return &venueRepository{db: db}
}

func (r *venueRepository) Get(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	query := `
		SELECT id, name, country_code, area_code_hint, contact_email, created_at, updated_at
		FROM venues
		WHERE id = $1
	`
	var venue model.Venue
	err := r.db.GetContext(ctx, &venue, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("venue not found")
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := `
		SELECT id, name, email, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	var customer model.Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer not found")
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}
