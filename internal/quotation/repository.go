package quotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quotient-erp/quotient/internal/platform/db"
	"github.com/quotient-erp/quotient/internal/shared"
)

// ErrDuplicateNumber indicates a unique violation on quotations.number.
var ErrDuplicateNumber = errors.New("quotation number already assigned")

// Repository is the persistence port for quotations. Items travel as one
// ordered collection behind this interface, so row storage stays an adapter
// detail.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, quotationID, itemID int64) error
	UpsertInfo(ctx context.Context, info Info) error
	ListExpired(ctx context.Context, asOf time.Time) ([]Quotation, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quotationColumns = `
	id, number, lead_id, version, status,
	subtotal_discount::text, vat_rate::text, validity_date,
	terms_and_conditions, additional_notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
	return r.hydrate(ctx, row)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE number = $1`, number)
	return r.hydrate(ctx, row)
}

func (r *repository) hydrate(ctx context.Context, row pgx.Row) (*Quotation, error) {
	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if q.Items, err = r.listItems(ctx, q.ID); err != nil {
		return nil, err
	}
	if q.Info, err = r.getInfo(ctx, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.LeadID != nil {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", argPos))
		args = append(args, *req.LeadID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotations "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT "+quotationColumns+" FROM quotations %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range quotations {
		if quotations[i].Items, err = r.listItems(ctx, quotations[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return quotations, total, nil
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var validity pgtype.Date
	if q.ValidityDate != nil {
		validity = pgtype.Date{Time: *q.ValidityDate, Valid: true}
	}
	version := q.Version
	if version == 0 {
		version = 1
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (number, lead_id, version, status, subtotal_discount, vat_rate,
		                        validity_date, terms_and_conditions, additional_notes)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
		RETURNING id
	`, q.Number, int8OrNil(q.LeadID), version, q.Status,
		q.SubtotalDiscount.String(), q.VATRate.String(), validity,
		textOrNil(q.Terms), textOrNil(q.Notes)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("number %s: %w", q.Number, ErrDuplicateNumber)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW(), version = version + 1"
	var args []interface{}
	argPos := 1

	appendSet := func(column, cast string, value interface{}) {
		query += fmt.Sprintf(", %s = $%d%s", column, argPos, cast)
		args = append(args, value)
		argPos++
	}
	if v, ok := updates["lead_id"]; ok {
		appendSet("lead_id", "", v)
	}
	if v, ok := updates["subtotal_discount"]; ok {
		appendSet("subtotal_discount", "::numeric", v)
	}
	if v, ok := updates["vat_rate"]; ok {
		appendSet("vat_rate", "::numeric", v)
	}
	if v, ok := updates["validity_date"]; ok {
		appendSet("validity_date", "", v)
	}
	if v, ok := updates["terms_and_conditions"]; ok {
		appendSet("terms_and_conditions", "", v)
	}
	if v, ok := updates["additional_notes"]; ok {
		appendSet("additional_notes", "", v)
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	// Items and info cascade at the schema level.
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) listItems(ctx context.Context, quotationID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, name, qty::text, rate::text, discount_type,
		       discount_value::text, unit, custom_unit, created_at, updated_at
		FROM quotation_items WHERE quotation_id = $1 ORDER BY id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			qty        string
			rate       string
			discount   string
			customUnit pgtype.Text
			createdAt  pgtype.Timestamptz
			updatedAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.Name, &qty, &rate,
			&item.DiscountType, &discount, &item.Unit, &customUnit, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if item.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if item.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		if item.DiscountValue, err = decimal.NewFromString(discount); err != nil {
			return nil, err
		}
		if customUnit.Valid {
			val := customUnit.String
			item.CustomUnit = &val
		}
		item.CreatedAt = createdAt.Time
		item.UpdatedAt = updatedAt.Time
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, name, qty, rate, discount_type, discount_value, unit, custom_unit)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::numeric, $7, $8)
		RETURNING id
	`, item.QuotationID, item.Name, item.Qty.String(), item.Rate.String(),
		item.DiscountType, item.DiscountValue.String(), item.Unit, textOrNil(item.CustomUnit)).Scan(&id)
	return id, err
}

func (r *repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotation_items
		SET name = $1, qty = $2::numeric, rate = $3::numeric, discount_type = $4,
		    discount_value = $5::numeric, unit = $6, custom_unit = $7, updated_at = NOW()
		WHERE id = $8 AND quotation_id = $9
	`, item.Name, item.Qty.String(), item.Rate.String(), item.DiscountType,
		item.DiscountValue.String(), item.Unit, textOrNil(item.CustomUnit), item.ID, item.QuotationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, quotationID, itemID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE id = $1 AND quotation_id = $2`, itemID, quotationID)
	return err
}

func (r *repository) getInfo(ctx context.Context, quotationID int64) (*Info, error) {
	var (
		info        Info
		quotationTo pgtype.Text
		address     pgtype.Text
		phone       pgtype.Text
	)
	err := r.db.QueryRow(ctx, `
		SELECT quotation_id, quotation_to, address, phone FROM quotation_info WHERE quotation_id = $1
	`, quotationID).Scan(&info.QuotationID, &quotationTo, &address, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if quotationTo.Valid {
		val := quotationTo.String
		info.QuotationTo = &val
	}
	if address.Valid {
		val := address.String
		info.Address = &val
	}
	if phone.Valid {
		val := phone.String
		info.Phone = &val
	}
	return &info, nil
}

func (r *repository) UpsertInfo(ctx context.Context, info Info) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO quotation_info (quotation_id, quotation_to, address, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (quotation_id)
		DO UPDATE SET quotation_to = EXCLUDED.quotation_to, address = EXCLUDED.address, phone = EXCLUDED.phone
	`, info.QuotationID, textOrNil(info.QuotationTo), textOrNil(info.Address), textOrNil(info.Phone))
	return err
}

func (r *repository) ListExpired(ctx context.Context, asOf time.Time) ([]Quotation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations
		WHERE validity_date IS NOT NULL AND validity_date < $1 AND status NOT IN ($2, $3)
		ORDER BY id
	`, asOf, StatusClosed, StatusDraft)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, *q)
	}
	return quotations, rows.Err()
}

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var (
		q                Quotation
		leadID           pgtype.Int8
		subtotalDiscount string
		vatRate          string
		validity         pgtype.Date
		terms            pgtype.Text
		notes            pgtype.Text
		createdAt        pgtype.Timestamptz
		updatedAt        pgtype.Timestamptz
	)
	err := row.Scan(&q.ID, &q.Number, &leadID, &q.Version, &q.Status,
		&subtotalDiscount, &vatRate, &validity, &terms, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if q.SubtotalDiscount, err = decimal.NewFromString(subtotalDiscount); err != nil {
		return nil, err
	}
	if q.VATRate, err = decimal.NewFromString(vatRate); err != nil {
		return nil, err
	}
	if leadID.Valid {
		val := leadID.Int64
		q.LeadID = &val
	}
	if validity.Valid {
		val := validity.Time
		q.ValidityDate = &val
	}
	if terms.Valid {
		val := terms.String
		q.Terms = &val
	}
	if notes.Valid {
		val := notes.String
		q.Notes = &val
	}
	q.CreatedAt = createdAt.Time
	q.UpdatedAt = updatedAt.Time
	return &q, nil
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func int8OrNil(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
