/*
Package sqlite provides a SQLite-backed implementation of requests.Store.

PURPOSE:
  Persists request records and their event trail. The same SQL runs on
  PostgreSQL with minor dialect changes.

KEY TABLES:
  requests:        One row per submitted case: facts, verdict, details and
                   the final decision
  request_events:  Append-only trail (created, decision)

WRITE RULES:
  - Facts and verdict columns are written once by Create
  - The only UPDATE is Decide, guarded by decision = 'pending'
  - request_events has no UPDATE or DELETE outside Reset

TIME COLUMNS:
  Instants are stored as fixed-width UTC text so ORDER BY on the column is
  chronological. Calendar dates are stored as YYYY-MM-DD.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/returns.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := requests.NewService(store, evaluator, policies)

SEE ALSO:
  - requests/store.go: Interface definition
  - requests/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

// timeLayout is fixed-width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements requests.Store using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex // serialises write transactions
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		created_on TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',

		received_date TEXT NOT NULL,
		purchase_channel TEXT NOT NULL,
		motive TEXT NOT NULL,
		product_used INTEGER NOT NULL,
		has_original_tags INTEGER NOT NULL,
		observations TEXT NOT NULL DEFAULT '',

		permitted INTEGER NOT NULL,
		result_kind TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		legal_basis TEXT,
		recommended_action TEXT,
		days_elapsed INTEGER NOT NULL,
		evaluated_on TEXT NOT NULL DEFAULT '',
		applied_rules_json TEXT NOT NULL DEFAULT '[]',

		customer_name TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		order_number TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL DEFAULT '',
		product_code TEXT NOT NULL DEFAULT '',
		product_description TEXT NOT NULL DEFAULT '',
		unit_price TEXT,
		quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),

		decision TEXT NOT NULL DEFAULT 'pending'
			CHECK (decision IN ('pending', 'approved', 'rejected')),
		decided_by TEXT NOT NULL DEFAULT '',
		decision_notes TEXT NOT NULL DEFAULT '',
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_created_on ON requests(created_on);
	CREATE INDEX IF NOT EXISTS idx_requests_order_number ON requests(order_number);

	CREATE TABLE IF NOT EXISTS request_events (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES requests(id),
		at TEXT NOT NULL,
		type TEXT NOT NULL,
		actor TEXT NOT NULL,
		from_decision TEXT NOT NULL DEFAULT '',
		to_decision TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_request_events_request ON request_events(request_id, at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type recordRow struct {
	ID        string `db:"id"`
	CreatedAt string `db:"created_at"`
	CreatedOn string `db:"created_on"`
	CreatedBy string `db:"created_by"`

	ReceivedDate    string `db:"received_date"`
	PurchaseChannel string `db:"purchase_channel"`
	Motive          string `db:"motive"`
	ProductUsed     bool   `db:"product_used"`
	HasOriginalTags bool   `db:"has_original_tags"`
	Observations    string `db:"observations"`

	Permitted         bool           `db:"permitted"`
	ResultKind        string         `db:"result_kind"`
	Title             string         `db:"title"`
	Message           string         `db:"message"`
	LegalBasis        sql.NullString `db:"legal_basis"`
	RecommendedAction sql.NullString `db:"recommended_action"`
	DaysElapsed       int            `db:"days_elapsed"`
	EvaluatedOn       string         `db:"evaluated_on"`
	AppliedRulesJSON  string         `db:"applied_rules_json"`

	CustomerName       string              `db:"customer_name"`
	CustomerEmail      string              `db:"customer_email"`
	CustomerPhone      string              `db:"customer_phone"`
	OrderNumber        string              `db:"order_number"`
	InvoiceNumber      string              `db:"invoice_number"`
	ProductCode        string              `db:"product_code"`
	ProductDescription string              `db:"product_description"`
	UnitPrice          decimal.NullDecimal `db:"unit_price"`
	Quantity           int                 `db:"quantity"`

	Decision      string         `db:"decision"`
	DecidedBy     string         `db:"decided_by"`
	DecisionNotes string         `db:"decision_notes"`
	DecidedAt     sql.NullString `db:"decided_at"`
}

func toRow(r *requests.Record) (recordRow, error) {
	rules, err := json.Marshal(r.Verdict.AppliedRules)
	if err != nil {
		return recordRow{}, fmt.Errorf("failed to encode applied rules: %w", err)
	}
	row := recordRow{
		ID:        r.ID,
		CreatedAt: formatTime(r.CreatedAt),
		CreatedOn: r.CreatedOn.String(),
		CreatedBy: r.CreatedBy,

		ReceivedDate:    r.Facts.ReceivedDate.String(),
		PurchaseChannel: string(r.Facts.PurchaseChannel),
		Motive:          string(r.Facts.Motive),
		ProductUsed:     r.Facts.ProductUsed,
		HasOriginalTags: r.Facts.HasOriginalTags,
		Observations:    r.Facts.Observations,

		Permitted:         r.Verdict.Permitted,
		ResultKind:        string(r.Verdict.ResultKind),
		Title:             r.Verdict.Title,
		Message:           r.Verdict.Message,
		LegalBasis:        nullString(r.Verdict.LegalBasis),
		RecommendedAction: nullString(r.Verdict.RecommendedAction),
		DaysElapsed:       r.Verdict.DaysElapsed,
		EvaluatedOn:       r.Verdict.EvaluatedOn.String(),
		AppliedRulesJSON:  string(rules),

		CustomerName:       r.Customer.Name,
		CustomerEmail:      r.Customer.Email,
		CustomerPhone:      r.Customer.Phone,
		OrderNumber:        r.OrderNumber,
		InvoiceNumber:      r.InvoiceNumber,
		ProductCode:        r.Product.Code,
		ProductDescription: r.Product.Description,
		UnitPrice:          r.Product.UnitPrice,
		Quantity:           r.Product.Quantity,

		Decision:      string(r.Decision),
		DecidedBy:     r.DecidedBy,
		DecisionNotes: r.DecisionNotes,
	}
	if row.Decision == "" {
		row.Decision = string(requests.DecisionPending)
	}
	if r.DecidedAt != nil {
		row.DecidedAt = sql.NullString{String: formatTime(*r.DecidedAt), Valid: true}
	}
	return row, nil
}

func (row recordRow) toRecord() (*requests.Record, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, err
	}
	createdOn, err := parseOptionalDate(row.CreatedOn)
	if err != nil {
		return nil, err
	}
	received, err := parseOptionalDate(row.ReceivedDate)
	if err != nil {
		return nil, err
	}
	evaluatedOn, err := parseOptionalDate(row.EvaluatedOn)
	if err != nil {
		return nil, err
	}
	rules := []eligibility.AppliedRule{}
	if err := json.Unmarshal([]byte(row.AppliedRulesJSON), &rules); err != nil {
		return nil, fmt.Errorf("failed to decode applied rules of %s: %w", row.ID, err)
	}

	rec := &requests.Record{
		ID:        row.ID,
		CreatedAt: createdAt,
		CreatedOn: createdOn,
		CreatedBy: row.CreatedBy,
		Facts: eligibility.RequestFacts{
			ReceivedDate:    received,
			PurchaseChannel: eligibility.Channel(row.PurchaseChannel),
			Motive:          eligibility.Motive(row.Motive),
			ProductUsed:     row.ProductUsed,
			HasOriginalTags: row.HasOriginalTags,
			Observations:    row.Observations,
		},
		Verdict: eligibility.Verdict{
			Permitted:         row.Permitted,
			ResultKind:        eligibility.ResultKind(row.ResultKind),
			Title:             row.Title,
			Message:           row.Message,
			LegalBasis:        stringPtr(row.LegalBasis),
			RecommendedAction: stringPtr(row.RecommendedAction),
			DaysElapsed:       row.DaysElapsed,
			EvaluatedOn:       evaluatedOn,
			AppliedRules:      rules,
		},
		Customer: requests.Customer{
			Name:  row.CustomerName,
			Email: row.CustomerEmail,
			Phone: row.CustomerPhone,
		},
		OrderNumber:   row.OrderNumber,
		InvoiceNumber: row.InvoiceNumber,
		Product: requests.Product{
			Code:        row.ProductCode,
			Description: row.ProductDescription,
			UnitPrice:   row.UnitPrice,
			Quantity:    row.Quantity,
		},
		Decision:      requests.FinalDecision(row.Decision),
		DecidedBy:     row.DecidedBy,
		DecisionNotes: row.DecisionNotes,
	}
	if row.DecidedAt.Valid {
		at, err := parseTime(row.DecidedAt.String)
		if err != nil {
			return nil, err
		}
		rec.DecidedAt = &at
	}
	return rec, nil
}

type eventRow struct {
	ID        string `db:"id"`
	RequestID string `db:"request_id"`
	At        string `db:"at"`
	Type      string `db:"type"`
	Actor     string `db:"actor"`
	From      string `db:"from_decision"`
	To        string `db:"to_decision"`
	Notes     string `db:"notes"`
}

func toEventRow(e requests.Event) eventRow {
	return eventRow{
		ID:        e.ID,
		RequestID: e.RequestID,
		At:        formatTime(e.At),
		Type:      string(e.Type),
		Actor:     e.Actor,
		From:      string(e.From),
		To:        string(e.To),
		Notes:     e.Notes,
	}
}

// =============================================================================
// REQUESTS STORE
// =============================================================================

const insertRecord = `
	INSERT INTO requests (
		id, created_at, created_on, created_by,
		received_date, purchase_channel, motive, product_used, has_original_tags, observations,
		permitted, result_kind, title, message, legal_basis, recommended_action,
		days_elapsed, evaluated_on, applied_rules_json,
		customer_name, customer_email, customer_phone, order_number, invoice_number,
		product_code, product_description, unit_price, quantity,
		decision, decided_by, decision_notes, decided_at
	) VALUES (
		:id, :created_at, :created_on, :created_by,
		:received_date, :purchase_channel, :motive, :product_used, :has_original_tags, :observations,
		:permitted, :result_kind, :title, :message, :legal_basis, :recommended_action,
		:days_elapsed, :evaluated_on, :applied_rules_json,
		:customer_name, :customer_email, :customer_phone, :order_number, :invoice_number,
		:product_code, :product_description, :unit_price, :quantity,
		:decision, :decided_by, :decision_notes, :decided_at
	)`

const insertEvent = `
	INSERT INTO request_events (id, request_id, at, type, actor, from_decision, to_decision, notes)
	VALUES (:id, :request_id, :at, :type, :actor, :from_decision, :to_decision, :notes)`

// Create inserts the record and its creation event in one transaction.
func (s *Store) Create(ctx context.Context, rec *requests.Record, ev requests.Event) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertRecord, row); err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, insertEvent, toEventRow(ev)); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id string) (*requests.Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return row.toRecord()
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, f requests.Filter) ([]requests.Record, error) {
	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		where = append(where, "created_on >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "created_on <= ?")
		args = append(args, f.To.String())
	}
	if f.Channel != "" {
		where = append(where, "purchase_channel = ?")
		args = append(args, string(f.Channel))
	}
	if f.Motive != "" {
		where = append(where, "motive = ?")
		args = append(args, string(f.Motive))
	}
	if f.Decision != "" {
		where = append(where, "decision = ?")
		args = append(args, string(f.Decision))
	}
	if f.OrderNumber != "" {
		where = append(where, "instr(order_number, ?) > 0")
		args = append(args, f.OrderNumber)
	}

	query := "SELECT * FROM requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1 // SQLite: no limit
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	out := make([]requests.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Decide closes a pending record and appends ev in one transaction.
func (s *Store) Decide(ctx context.Context, id string, d requests.DecisionUpdate, ev requests.Event) (*requests.Record, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current string
		err := tx.GetContext(ctx, &current, `SELECT decision FROM requests WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return requests.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}
		if requests.FinalDecision(current).Final() {
			return &requests.DecisionConflictError{RequestID: id, Current: requests.FinalDecision(current)}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE requests
			SET decision = ?, decided_by = ?, decision_notes = ?, decided_at = ?
			WHERE id = ? AND decision = 'pending'`,
			string(d.Decision), d.Actor, d.Notes, formatTime(d.At), id,
		); err != nil {
			return fmt.Errorf("failed to update decision: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, insertEvent, toEventRow(ev)); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Events returns the trail of a record, oldest first.
func (s *Store) Events(ctx context.Context, id string) ([]requests.Event, error) {
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM request_events WHERE request_id = ? ORDER BY at, rowid`, id); err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	out := make([]requests.Event, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.At)
		if err != nil {
			return nil, err
		}
		out = append(out, requests.Event{
			ID:        row.ID,
			RequestID: row.RequestID,
			At:        at,
			Type:      requests.EventType(row.Type),
			Actor:     row.Actor,
			From:      requests.FinalDecision(row.From),
			To:        requests.FinalDecision(row.To),
			Notes:     row.Notes,
		})
	}
	return out, nil
}

// Reset deletes all data. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"request_events", "requests"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func parseOptionalDate(s string) (eligibility.Date, error) {
	if s == "" {
		return eligibility.Date{}, nil
	}
	return eligibility.ParseDate(s)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
