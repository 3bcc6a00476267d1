package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/repository"
)

// compile-time check that *DB implements repository.ListingRepository
var _ repository.ListingRepository = (*DB)(nil)

const listingColumns = `id, type, brand, model, year, color, mileage, price, is_featured, photo_paths`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (model.Listing, error) {
	var (
		l      model.Listing
		photos string
	)
	err := s.Scan(
		&l.ID,
		&l.Type,
		&l.Brand,
		&l.Model,
		&l.Year,
		&l.Color,
		&l.Mileage,
		&l.Price,
		&l.IsFeatured,
		&photos,
	)
	l.PhotoPaths = model.SplitPhotoPaths(photos)
	return l, err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertListing(ctx context.Context, ex execer, l *model.Listing) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.Type,
		l.Brand,
		l.Model,
		l.Year,
		l.Color,
		l.Mileage,
		l.Price,
		l.IsFeatured,
		model.JoinPhotoPaths(l.PhotoPaths),
	)
	return err
}

// List returns every listing in the order rows were written.
func (db *DB) List(ctx context.Context) ([]model.Listing, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating listings: %w", err)
	}

	return listings, nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id,
	)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("listing", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting listing %d: %w", id, err)
	}
	return &l, nil
}

func (db *DB) Create(ctx context.Context, listing *model.Listing) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE id = ?`, listing.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking listing %d: %w", listing.ID, err)
	}
	if exists > 0 {
		return apperror.Conflict("listing", strconv.FormatInt(listing.ID, 10))
	}

	if err := insertListing(ctx, db.conn, listing); err != nil {
		return fmt.Errorf("sqlite: creating listing %d: %w", listing.ID, err)
	}
	return nil
}

func (db *DB) Update(ctx context.Context, listing *model.Listing) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE listings
		 SET type = ?, brand = ?, model = ?, year = ?, color = ?,
		     mileage = ?, price = ?, is_featured = ?, photo_paths = ?
		 WHERE id = ?`,
		listing.Type,
		listing.Brand,
		listing.Model,
		listing.Year,
		listing.Color,
		listing.Mileage,
		listing.Price,
		listing.IsFeatured,
		model.JoinPhotoPaths(listing.PhotoPaths),
		listing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating listing %d: %w", listing.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating listing %d: %w", listing.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("listing", strconv.FormatInt(listing.ID, 10))
	}
	return nil
}

// ReplaceAll swaps the table contents inside one transaction, so readers
// see either the old rows or the new ones.
func (db *DB) ReplaceAll(ctx context.Context, listings []model.Listing) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning replace: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("sqlite: clearing listings: %w", err)
	}

	for i := range listings {
		if err := insertListing(ctx, tx, &listings[i]); err != nil {
			return fmt.Errorf("sqlite: inserting listing %d: %w", listings[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing replace: %w", err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting listing %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting listing %d: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("listing", strconv.FormatInt(id, 10))
	}
	return nil
}
