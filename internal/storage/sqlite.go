package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tripledger/internal/core"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- trips ---

func (s *SQLiteStore) GetSettings(ctx context.Context, tripID string) (*core.TripSettings, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT trip_id, home_currency, local_currency, exchange_rate, info
	FROM trips WHERE trip_id = ?`, tripID)
	ts, err := scanSettings(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", tripID, err)
	}
	return &ts, nil
}

func (s *SQLiteStore) ListTrips(ctx context.Context) ([]core.TripSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT trip_id, home_currency, local_currency, exchange_rate, info
	FROM trips ORDER BY trip_id`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []core.TripSettings{}
	for rows.Next() {
		ts, err := scanSettings(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertSettings(ctx context.Context, ts core.TripSettings) (core.TripSettings, error) {
	var info sql.NullString
	if ts.Info != nil {
		b, err := json.Marshal(ts.Info)
		if err != nil {
			return core.TripSettings{}, fmt.Errorf("encode trip info: %w", err)
		}
		info = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO trips(trip_id, home_currency, local_currency, exchange_rate, info, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(trip_id) DO UPDATE SET
	 home_currency=excluded.home_currency,
	 local_currency=excluded.local_currency,
	 exchange_rate=excluded.exchange_rate,
	 info=excluded.info,
	 updated_at=excluded.updated_at`,
		ts.TripID, ts.HomeCurrencyCode, ts.LocalCurrencyCode, ts.ExchangeRateLocalToHome.String(), info, FormatTime(s.now()))
	if err != nil {
		return core.TripSettings{}, fmt.Errorf("upsert trip %s: %w", ts.TripID, err)
	}
	return ts.Clone(), nil
}

// --- instruments ---

const instrumentColumns = `id, trip_id, name, kind, currency_code, credit_limit, sort_order`

func (s *SQLiteStore) GetInstrument(ctx context.Context, id string) (*core.PaymentInstrument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+instrumentColumns+` FROM payment_instruments WHERE id = ?`, id)
	in, err := scanInstrument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", id, err)
	}
	return &in, nil
}

func (s *SQLiteStore) ListInstruments(ctx context.Context, tripID string) ([]core.PaymentInstrument, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+instrumentColumns+` FROM payment_instruments
	WHERE trip_id = ? ORDER BY sort_order ASC, id ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	out := []core.PaymentInstrument{}
	for rows.Next() {
		in, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertInstrument(ctx context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO payment_instruments(`+instrumentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.TripID, in.Name, string(in.Kind), in.CurrencyCode, in.CreditLimit.String(), in.Order)
	if err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("insert instrument %s: %w", in.ID, err)
	}
	return in, nil
}

func (s *SQLiteStore) UpdateInstrument(ctx context.Context, id string, patch InstrumentPatch) (core.PaymentInstrument, error) {
	cur, err := s.GetInstrument(ctx, id)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	if cur == nil {
		return core.PaymentInstrument{}, &core.NotFoundError{Entity: "payment instrument", ID: id}
	}
	return s.UpsertInstrument(ctx, patch.Apply(*cur))
}

func (s *SQLiteStore) UpsertInstrument(ctx context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error) {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO payment_instruments(`+instrumentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 trip_id=excluded.trip_id,
	 name=excluded.name,
	 kind=excluded.kind,
	 currency_code=excluded.currency_code,
	 credit_limit=excluded.credit_limit,
	 sort_order=excluded.sort_order`,
		in.ID, in.TripID, in.Name, string(in.Kind), in.CurrencyCode, in.CreditLimit.String(), in.Order)
	if err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("upsert instrument %s: %w", in.ID, err)
	}
	return in, nil
}

func (s *SQLiteStore) DeleteInstrument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM payment_instruments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete instrument %s: %w", id, err)
	}
	return nil
}

// --- ledger items ---

const itemColumns = `id, trip_id, payment_instrument_id, title, amount, currency_code, category,
	expense_date, creator_user_id, split_with, created_at, updated_at`

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*core.LedgerItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM ledger_items WHERE id = ?`, id)
	it, err := scanItem(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return &it, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, tripID string) ([]core.LedgerItem, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+itemColumns+` FROM ledger_items
	WHERE trip_id = ?
	ORDER BY expense_date DESC, updated_at DESC, category ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []core.LedgerItem{}
	for rows.Next() {
		it, err := scanItem(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertItem(ctx context.Context, it core.LedgerItem) (core.LedgerItem, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := s.now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now

	split, err := encodeSplit(it.SplitWith)
	if err != nil {
		return core.LedgerItem{}, err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO ledger_items(`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.TripID, it.PaymentInstrumentID, it.Title, it.Amount.String(), it.CurrencyCode, string(it.Category),
		it.ExpenseDate.String(), it.CreatorUserID, split, FormatTime(it.CreatedAt), FormatTime(it.UpdatedAt))
	if err != nil {
		return core.LedgerItem{}, fmt.Errorf("insert item %s: %w", it.ID, err)
	}
	return it, nil
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, id string, patch core.LedgerItemPatch) (core.LedgerItem, error) {
	cur, err := s.GetItem(ctx, id)
	if err != nil {
		return core.LedgerItem{}, err
	}
	if cur == nil {
		return core.LedgerItem{}, &core.NotFoundError{Entity: "ledger item", ID: id}
	}
	return s.UpsertItem(ctx, cur.Apply(patch))
}

// UpsertItem writes it by id. CreatedAt is kept from the existing row.
func (s *SQLiteStore) UpsertItem(ctx context.Context, it core.LedgerItem) (core.LedgerItem, error) {
	now := s.now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now

	split, err := encodeSplit(it.SplitWith)
	if err != nil {
		return core.LedgerItem{}, err
	}
	var createdAt string
	err = s.db.QueryRowContext(ctx, `
	INSERT INTO ledger_items(`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 trip_id=excluded.trip_id,
	 payment_instrument_id=excluded.payment_instrument_id,
	 title=excluded.title,
	 amount=excluded.amount,
	 currency_code=excluded.currency_code,
	 category=excluded.category,
	 expense_date=excluded.expense_date,
	 creator_user_id=excluded.creator_user_id,
	 split_with=excluded.split_with,
	 updated_at=excluded.updated_at
	RETURNING created_at`,
		it.ID, it.TripID, it.PaymentInstrumentID, it.Title, it.Amount.String(), it.CurrencyCode, string(it.Category),
		it.ExpenseDate.String(), it.CreatorUserID, split, FormatTime(it.CreatedAt), FormatTime(it.UpdatedAt)).Scan(&createdAt)
	if err != nil {
		return core.LedgerItem{}, fmt.Errorf("upsert item %s: %w", it.ID, err)
	}
	if it.CreatedAt, err = time.Parse(TimeLayout, createdAt); err != nil {
		return core.LedgerItem{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return it, nil
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// --- scanning ---

type scanner interface {
	Scan(dest ...any) error
}

func scanSettings(ctx context.Context, row scanner) (core.TripSettings, error) {
	var (
		ts   core.TripSettings
		rate string
		info sql.NullString
	)
	if err := row.Scan(&ts.TripID, &ts.HomeCurrencyCode, &ts.LocalCurrencyCode, &rate, &info); err != nil {
		return ts, err
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return ts, fmt.Errorf("parse exchange rate %q: %w", rate, err)
	}
	ts.ExchangeRateLocalToHome = d

	if info.Valid {
		dec := core.DecodeJSON[map[string]any](info.String)
		if dec.Status == core.DecodeFailed {
			slog.WarnContext(ctx, "Malformed trip info ignored", "trip_id", ts.TripID, "error", dec.Err)
		}
		ts.Info = dec.OrZero()
	}
	return ts, nil
}

func scanInstrument(row scanner) (core.PaymentInstrument, error) {
	var (
		in    core.PaymentInstrument
		kind  string
		limit string
	)
	if err := row.Scan(&in.ID, &in.TripID, &in.Name, &kind, &in.CurrencyCode, &limit, &in.Order); err != nil {
		return in, err
	}
	in.Kind = core.InstrumentKind(kind)
	d, err := decimal.NewFromString(limit)
	if err != nil {
		return in, fmt.Errorf("parse credit limit %q: %w", limit, err)
	}
	in.CreditLimit = d
	return in, nil
}

func scanItem(ctx context.Context, row scanner) (core.LedgerItem, error) {
	var (
		it                     core.LedgerItem
		amount, category, date string
		split                  sql.NullString
		createdAt, updatedAt   string
	)
	if err := row.Scan(&it.ID, &it.TripID, &it.PaymentInstrumentID, &it.Title, &amount, &it.CurrencyCode, &category,
		&date, &it.CreatorUserID, &split, &createdAt, &updatedAt); err != nil {
		return it, err
	}

	var err error
	if it.Amount, err = decimal.NewFromString(amount); err != nil {
		return it, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	it.Category = core.Category(category)
	if it.ExpenseDate, err = core.ParseDate(date); err != nil {
		return it, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	if it.CreatedAt, err = time.Parse(TimeLayout, createdAt); err != nil {
		return it, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if it.UpdatedAt, err = time.Parse(TimeLayout, updatedAt); err != nil {
		return it, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}

	if split.Valid {
		dec := core.DecodeJSON[[]string](split.String)
		if dec.Status == core.DecodeFailed {
			slog.WarnContext(ctx, "Malformed split list ignored", "item_id", it.ID, "error", dec.Err)
		}
		it.SplitWith = dec.OrZero()
	}
	if it.SplitWith == nil {
		it.SplitWith = []string{}
	}
	return it, nil
}

func encodeSplit(with []string) (string, error) {
	if with == nil {
		with = []string{}
	}
	b, err := json.Marshal(with)
	if err != nil {
		return "", fmt.Errorf("encode split list: %w", err)
	}
	return string(b), nil
}
