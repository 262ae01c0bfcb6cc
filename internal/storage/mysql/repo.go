package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tour_match/internal/domain"
	"tour_match/internal/query"
)

func valInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

var (
	_ domain.DimensionSource     = (*Repo)(nil)
	_ domain.InventoryRepository = (*Repo)(nil)
)

// FindTours returns at most limit offers matching every predicate, cheapest
// first. Values are always bound as parameters.
func (r *Repo) FindTours(ctx context.Context, set query.PredicateSet, limit int) ([]domain.TourOffer, error) {
	where, args, err := buildWhere(set)
	if err != nil {
		return nil, err
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, selectToursSQL+where+orderToursSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TourOffer
	for rows.Next() {
		var t domain.TourOffer
		var (
			resortID, categoryID, mealID sql.NullInt64
			currency, url, desc          sql.NullString
			checkIn                      sql.NullTime
		)
		if err := rows.Scan(
			&t.ID,
			&t.HotelID,
			&t.HotelName,
			&t.CountryID,
			&t.CityID,
			&resortID,
			&t.Nights,
			&t.Price,
			&currency,
			&checkIn,
			&categoryID,
			&mealID,
			&url,
			&desc,
		); err != nil {
			return nil, err
		}
		t.ResortID = resortID.Int64
		t.HotelCategoryID = categoryID.Int64
		t.MealID = mealID.Int64
		t.Currency = currency.String
		t.URL = url.String
		t.Description = desc.String
		if checkIn.Valid {
			t.CheckIn = checkIn.Time
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// buildWhere renders predicates as " AND ..." clauses with positional args.
func buildWhere(set query.PredicateSet) (string, []any, error) {
	var b strings.Builder
	var args []any
	for _, p := range set.Predicates() {
		switch p := p.(type) {
		case query.Equals:
			fmt.Fprintf(&b, "\n  AND t.%s = ?", p.Field)
			args = append(args, p.Value)
		case query.OneOf:
			if len(p.Values) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n  AND t.%s IN (%s)", p.Field, placeholders(len(p.Values)))
			for _, v := range p.Values {
				args = append(args, v)
			}
		case query.Between:
			fmt.Fprintf(&b, "\n  AND t.%s BETWEEN ? AND ?", p.Field)
			args = append(args, p.Lo, p.Hi)
		case query.AtMost:
			fmt.Fprintf(&b, "\n  AND t.%s <= ?", p.Field)
			args = append(args, p.Value)
		case query.MonthIs:
			fmt.Fprintf(&b, "\n  AND MONTH(t.%s) = ?", p.Field)
			args = append(args, p.Month)
		default:
			return "", nil, fmt.Errorf("unsupported predicate %T", p)
		}
	}
	return b.String(), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// LoadDimension reads the (id, name) rows of a whitelisted dimension table.
func (r *Repo) LoadDimension(ctx context.Context, dim domain.Dimension) ([]domain.NamedID, error) {
	q, ok := selectDimensionSQL[string(dim)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", dim, domain.ErrUnknownDimension)
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NamedID
	for rows.Next() {
		var n domain.NamedID
		var name sql.NullString
		if err := rows.Scan(&n.ID, &name, &n.ParentID); err != nil {
			return nil, err
		}
		n.Name = name.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertDimension writes directory rows in one transaction.
func (r *Repo) UpsertDimension(ctx context.Context, dim domain.Dimension, rows []domain.NamedID) error {
	q, ok := upsertDimensionSQL[string(dim)]
	if !ok {
		return fmt.Errorf("%q: %w", dim, domain.ErrUnknownDimension)
	}
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range rows {
		args := []any{n.ID, n.Name}
		if dim == domain.DimResorts {
			args = append(args, valInt64(n.ParentID))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert %s %d: %w", dim, n.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) UpsertTours(ctx context.Context, tours []domain.TourOffer) error {
	if len(tours) == 0 {
		return nil
	}
	values := make([]string, 0, len(tours))
	args := make([]any, 0, len(tours)*12) // 12 params per row
	for _, t := range tours {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?)")
		var checkIn any
		if !t.CheckIn.IsZero() {
			checkIn = t.CheckIn.Format("2006-01-02")
		}
		args = append(args,
			t.HotelID,
			t.HotelName,
			t.CountryID,
			t.CityID,
			valInt64(t.ResortID),
			t.Nights,
			t.Price,
			valStr(t.Currency),
			checkIn,
			valInt64(t.HotelCategoryID),
			valInt64(t.MealID),
			valStr(t.URL),
		)
	}
	sqlStr := insertToursPrefix + strings.Join(values, ",") + insertToursOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, route string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, route, status, reason)
	return err
}
