package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// listingColumns is the canonical select list for the listings table.
const listingColumns = `id, source, title, description, price, year, mileage,
	fuel_type, seller_type, location, image_count, active, first_seen, last_seen`

// CorpusRepository is the PostgreSQL implementation of the corpus and
// signal-source ports.  Every database fault surfaces as CorpusUnavailable,
// the engine's single hard-failure condition.
type CorpusRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCorpusRepository constructs a ready-to-use CorpusRepository.
func NewCorpusRepository(pool *pgxpool.Pool, logger logging.Logger) *CorpusRepository {
	return &CorpusRepository{pool: pool, logger: logger.Named("corpus-pg")}
}

// Query returns listings matching the filter, most recently seen first.
func (r *CorpusRepository) Query(ctx context.Context, filter listing.QueryFilter) ([]listing.Listing, error) {
	sql, args := buildQuerySQL(filter)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "listing query failed")
	}
	defer rows.Close()

	var out []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "listing row scan failed")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "listing query failed")
	}
	return out, nil
}

// Get returns the listing with the given ID or a CodeNotFound error.
func (r *CorpusRepository) Get(ctx context.Context, id string) (*listing.Listing, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns), id)

	l, err := scanListing(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("listing not found").WithDetail(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "listing lookup failed")
	}
	return &l, nil
}

// Version derives the corpus version from the row count and the most recent
// observation time.  Any write to the listings table moves at least one of
// the two, so cached valuations keyed on the version never survive a change
// they should reflect.
func (r *CorpusRepository) Version(ctx context.Context) (string, error) {
	var count int64
	var lastSeen *int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), CAST(EXTRACT(EPOCH FROM MAX(last_seen)) AS BIGINT) FROM listings`,
	).Scan(&count, &lastSeen)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCorpusUnavailable, "corpus version query failed")
	}
	if lastSeen == nil {
		return fmt.Sprintf("pg-%d-0", count), nil
	}
	return fmt.Sprintf("pg-%d-%d", count, *lastSeen), nil
}

// Signals returns the stored condition signals for a listing, or (nil, nil)
// when none exist.
func (r *CorpusRepository) Signals(ctx context.Context, listingID string) (*listing.ConditionSignals, error) {
	var sig listing.ConditionSignals
	err := r.pool.QueryRow(ctx,
		`SELECT red_flags, positive_signals, seller_credibility
		 FROM listing_signals WHERE listing_id = $1`, listingID,
	).Scan(&sig.RedFlags, &sig.PositiveSignals, &sig.SellerCredibility)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "signal lookup failed")
	}
	return &sig, nil
}

// buildQuerySQL renders the dynamic WHERE clause for a QueryFilter.  Every
// value travels as a bind parameter; filter text never reaches the SQL string.
func buildQuerySQL(filter listing.QueryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		where = append(where, "active")
	}
	if filter.ExcludeID != "" {
		where = append(where, fmt.Sprintf("id <> %s", arg(filter.ExcludeID)))
	}
	if filter.PriceMin != nil {
		where = append(where, fmt.Sprintf("price >= %s", arg(*filter.PriceMin)))
	}
	if filter.PriceMax != nil {
		where = append(where, fmt.Sprintf("price <= %s", arg(*filter.PriceMax)))
	}
	if filter.YearMin != nil {
		where = append(where, fmt.Sprintf("year >= %s", arg(*filter.YearMin)))
	}
	if filter.YearMax != nil {
		where = append(where, fmt.Sprintf("year <= %s", arg(*filter.YearMax)))
	}
	if filter.FuelType != "" {
		where = append(where, fmt.Sprintf("fuel_type = %s", arg(filter.FuelType)))
	}
	if len(filter.Keywords) > 0 {
		patterns := make([]string, 0, len(filter.Keywords))
		for _, kw := range filter.Keywords {
			if kw == "" {
				continue
			}
			patterns = append(patterns, "%"+escapeLike(kw)+"%")
		}
		if len(patterns) > 0 {
			where = append(where,
				fmt.Sprintf("(title || ' ' || COALESCE(description, '')) ILIKE ANY(%s)", arg(patterns)))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM listings", listingColumns)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY last_seen DESC, id ASC")
	if filter.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %s", arg(filter.Limit))
	}
	return sb.String(), args
}

// escapeLike escapes the LIKE metacharacters of a keyword so it matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// scanListing maps one row of listingColumns onto a Listing.
func scanListing(row pgx.Row) (listing.Listing, error) {
	var l listing.Listing
	err := row.Scan(
		&l.ID, &l.Source, &l.Title, &l.Description, &l.Price, &l.Year, &l.Mileage,
		&l.FuelType, &l.SellerType, &l.Location, &l.ImageCount, &l.Active,
		&l.FirstSeen, &l.LastSeen,
	)
	return l, err
}
