package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
)

// PostgresStore persists vendors in PostgreSQL. Flags live in the append-only
// vendor_flags table; appends lock the vendor row so concurrent stages for the
// same vendor are applied one at a time.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	o := applyOptions(opts)
	return &PostgresStore{db: db, now: o.now}
}

func (s *PostgresStore) SaveVendor(ctx context.Context, v *models.Vendor) error {
	query := `
		INSERT INTO vendors (id, name, street, city, state, postal_code, website, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			website = EXCLUDED.website,
			country = EXCLUDED.country
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID.String(), v.Name,
		v.Address.Street, v.Address.City, v.Address.State, v.Address.PostalCode,
		v.Website, v.Country,
	)
	if err != nil {
		return fmt.Errorf("save vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, name, street, city, state, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID.String(), a.Name,
		a.Address.Street, a.Address.City, a.Address.State, a.Address.PostalCode,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Vendor(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	query := `
		SELECT id, name, street, city, state, postal_code, website, country,
			date_scanned, registry_years, registry_active, sanctions_hit
		FROM vendors
		WHERE id = $1
	`
	v, err := scanVendor(s.db.QueryRowContext(ctx, query, vendorID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find vendor: %w", err)
	}

	flags, err := s.loadFlags(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	v.Flags = flags
	return v, nil
}

func (s *PostgresStore) Account(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `
		SELECT id, name, street, city, state, postal_code
		FROM accounts
		WHERE id = $1
	`
	var a models.Account
	var rawID string
	err := s.db.QueryRowContext(ctx, query, accountID.String()).Scan(
		&rawID, &a.Name, &a.Address.Street, &a.Address.City, &a.Address.State, &a.Address.PostalCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.ID = accountID
	return &a, nil
}

// AppendFlag inserts one flag and stamps the scan date inside a transaction
// holding the vendor row lock. Returns false when the vendor no longer exists.
func (s *PostgresStore) AppendFlag(ctx context.Context, vendorID id.VendorID, flag models.FlagRecord) (appended bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin append flag: %w", err)
	}
	defer func() {
		if err != nil || !appended {
			_ = tx.Rollback()
		}
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM vendors WHERE id = $1 FOR UPDATE`, vendorID.String()).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock vendor: %w", err)
	}

	now := s.now()
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = now
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO vendor_flags (vendor_id, flag, stage, created_at) VALUES ($1, $2, $3, $4)`,
		vendorID.String(), flag.Text, flag.Stage, flag.CreatedAt,
	); err != nil {
		return false, fmt.Errorf("insert flag: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE vendors SET date_scanned = $2 WHERE id = $1`, vendorID.String(), now); err != nil {
		return false, fmt.Errorf("stamp scan date: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit append flag: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Flags(ctx context.Context, vendorID id.VendorID) (models.FlagSummary, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, vendorID.String()).Scan(&exists); err != nil {
		return models.FlagSummary{}, fmt.Errorf("check vendor: %w", err)
	}
	if !exists {
		return models.FlagSummary{}, ErrNotFound
	}
	flags, err := s.loadFlags(ctx, vendorID)
	if err != nil {
		return models.FlagSummary{}, err
	}
	return models.NewFlagSummary(vendorID, flags), nil
}

func (s *PostgresStore) UpdateRegistryInfo(ctx context.Context, vendorID id.VendorID, years *float64, active bool) (bool, error) {
	var yearsArg sql.NullFloat64
	if years != nil {
		yearsArg = sql.NullFloat64{Float64: *years, Valid: true}
	}
	return s.execVendorUpdate(ctx, "update registry info",
		`UPDATE vendors SET registry_years = $2, registry_active = $3 WHERE id = $1`,
		vendorID.String(), yearsArg, active,
	)
}

func (s *PostgresStore) UpdateSanctionsInfo(ctx context.Context, vendorID id.VendorID, hit bool) (bool, error) {
	return s.execVendorUpdate(ctx, "update sanctions info",
		`UPDATE vendors SET sanctions_hit = $2 WHERE id = $1`,
		vendorID.String(), hit,
	)
}

func (s *PostgresStore) MarkScanned(ctx context.Context, vendorID id.VendorID, at time.Time) (bool, error) {
	return s.execVendorUpdate(ctx, "mark scanned",
		`UPDATE vendors SET date_scanned = $2 WHERE id = $1`,
		vendorID.String(), at,
	)
}

func (s *PostgresStore) DeleteVendor(ctx context.Context, vendorID id.VendorID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = $1`, vendorID.String()); err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) execVendorUpdate(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) loadFlags(ctx context.Context, vendorID id.VendorID) ([]models.FlagRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT flag, stage, created_at FROM vendor_flags WHERE vendor_id = $1 ORDER BY id`,
		vendorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}
	defer rows.Close()

	flags := make([]models.FlagRecord, 0)
	for rows.Next() {
		var f models.FlagRecord
		if err := rows.Scan(&f.Text, &f.Stage, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flags: %w", err)
	}
	return flags, nil
}

type vendorRow interface {
	Scan(dest ...any) error
}

func scanVendor(row vendorRow) (*models.Vendor, error) {
	var (
		v       models.Vendor
		rawID   string
		scanned sql.NullTime
		years   sql.NullFloat64
		active  sql.NullBool
		hit     sql.NullBool
	)
	if err := row.Scan(&rawID, &v.Name,
		&v.Address.Street, &v.Address.City, &v.Address.State, &v.Address.PostalCode,
		&v.Website, &v.Country, &scanned, &years, &active, &hit,
	); err != nil {
		return nil, err
	}
	parsed, err := id.ParseVendorID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored vendor id: %w", err)
	}
	v.ID = parsed
	if scanned.Valid {
		v.DateScanned = &scanned.Time
	}
	if years.Valid {
		v.RegistryYearsInBusiness = &years.Float64
	}
	if active.Valid {
		v.RegistryActive = &active.Bool
	}
	if hit.Valid {
		v.SanctionsHit = &hit.Bool
	}
	return &v, nil
}
