/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists everything the engine needs between requests: contract terms,
  risk-factor observations, contingent events, holiday calendars and the
  evaluation runs the engine produced.

INTERFACES IMPLEMENTED:
  generic.RunStore:  Evaluation runs (append-only)
  riskfactor.Source: Observations and contingent events

APPEND-ONLY ENFORCEMENT:
  Runs are never updated or deleted. Re-evaluating a contract writes a new
  run; a second save of the same run ID fails with ErrDuplicateRun.
  Contract terms may be replaced; observations keep the latest value per
  (series, time).

KEY TABLES:
  contracts:         Terms documents as submitted (JSON)
  observations:      Risk-factor series values
  contingent_events: Unscheduled events per contract
  holidays:          Named holiday calendars
  runs:              Evaluation results with the flattened event table

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite serializes writers anyway;
  the mutex keeps read-modify-write sequences consistent.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/cashflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  observer, err := riskfactor.Load(ctx, store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: RunStore interface
  - riskfactor/load.go: Source interface
  - generic/store/memory.go: In-memory run store for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/riskfactor"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.RunStore  = (*Store)(nil)
	_ riskfactor.Source = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Contract terms, stored as submitted
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		contract_type TEXT NOT NULL,
		terms_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_type
		ON contracts(contract_type);

	-- Risk-factor observations
	CREATE TABLE IF NOT EXISTS observations (
		series TEXT NOT NULL,
		observed_at TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (series, observed_at)
	);

	-- Contingent (unscheduled) events
	CREATE TABLE IF NOT EXISTS contingent_events (
		contract_id TEXT NOT NULL,
		event_at TEXT NOT NULL,
		event_type TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (contract_id, event_at, event_type, currency)
	);

	-- Holiday calendars
	CREATE TABLE IF NOT EXISTS holidays (
		calendar TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (calendar, date)
	);

	-- Evaluation runs (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		analysis_json TEXT NOT NULL,
		events_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_contract_created
		ON runs(contract_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractRecord is a stored terms document.
type ContractRecord struct {
	ID           generic.ContractID
	ContractType string
	Terms        json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaveContract inserts or replaces a contract's terms.
func (s *Store) SaveContract(ctx context.Context, c ContractRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	query := `
		INSERT INTO contracts (id, contract_type, terms_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contract_type = excluded.contract_type,
			terms_json = excluded.terms_json,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		string(c.ID),
		c.ContractType,
		string(c.Terms),
		now.Format(timeLayout),
		now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract %s: %w", c.ID, err)
	}
	return nil
}

// GetContract returns a contract by ID, or ErrContractNotFound.
func (s *Store) GetContract(ctx context.Context, id generic.ContractID) (ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, contract_type, terms_json, created_at, updated_at
		FROM contracts WHERE id = ?
	`, string(id))
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContractRecord{}, fmt.Errorf("contract %s: %w", id, generic.ErrContractNotFound)
	}
	return c, err
}

// ListContracts returns all contracts ordered by ID.
func (s *Store) ListContracts(ctx context.Context) ([]ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_type, terms_json, created_at, updated_at
		FROM contracts ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var out []ContractRecord
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(row scanner) (ContractRecord, error) {
	var c ContractRecord
	var id, terms, created, updated string
	if err := row.Scan(&id, &c.ContractType, &terms, &created, &updated); err != nil {
		return ContractRecord{}, err
	}
	c.ID = generic.ContractID(id)
	c.Terms = json.RawMessage(terms)
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	c.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return c, nil
}

// =============================================================================
// RISK FACTORS (riskfactor.Source interface)
// =============================================================================

// AddObservations stores observations atomically. A second value for the
// same series and time replaces the first.
func (s *Store) AddObservations(ctx context.Context, obs []riskfactor.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, o := range obs {
			if o.Series == "" {
				return fmt.Errorf("observation at %s: empty series", o.At.Format(timeLayout))
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO observations (series, observed_at, value) VALUES (?, ?, ?)
				ON CONFLICT(series, observed_at) DO UPDATE SET value = excluded.value
			`, o.Series, o.At.UTC().Format(timeLayout), o.Value.String())
			if err != nil {
				return fmt.Errorf("failed to add observation %s: %w", o.Series, err)
			}
		}
		return nil
	})
}

// ListObservations returns every observation ordered by series and time.
func (s *Store) ListObservations(ctx context.Context) ([]riskfactor.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT series, observed_at, value FROM observations
		ORDER BY series ASC, observed_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []riskfactor.Observation
	for rows.Next() {
		var series, at, value string
		if err := rows.Scan(&series, &at, &value); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("observation %s: %w", series, err)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("observation %s: %w", series, err)
		}
		out = append(out, riskfactor.Observation{Series: series, At: t, Value: v})
	}
	return out, rows.Err()
}

// AddContingentEvents stores contingent events atomically. Recording the
// same event twice is a no-op.
func (s *Store) AddContingentEvents(ctx context.Context, events []riskfactor.ContingentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(timeLayout)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			if e.ContractID == "" || !e.Type.Valid() {
				return fmt.Errorf("contingent event %s at %s: contract and valid type required",
					e.Type, e.At.Format(timeLayout))
			}
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO contingent_events (contract_id, event_at, event_type, currency, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, string(e.ContractID), e.At.UTC().Format(timeLayout), e.Type.String(), e.Currency, now)
			if err != nil {
				return fmt.Errorf("failed to add contingent event: %w", err)
			}
		}
		return nil
	})
}

// ListContingentEvents returns every contingent event ordered by contract
// and time.
func (s *Store) ListContingentEvents(ctx context.Context) ([]riskfactor.ContingentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, event_at, event_type, currency FROM contingent_events
		ORDER BY contract_id ASC, event_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contingent events: %w", err)
	}
	defer rows.Close()

	var out []riskfactor.ContingentEvent
	for rows.Next() {
		var id, at, typ, currency string
		if err := rows.Scan(&id, &at, &typ, &currency); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("contingent event of %s: %w", id, err)
		}
		et, err := generic.ParseEventType(typ)
		if err != nil {
			return nil, fmt.Errorf("contingent event of %s: %w", id, err)
		}
		out = append(out, riskfactor.ContingentEvent{
			ContractID: generic.ContractID(id),
			At:         t,
			Type:       et,
			Currency:   currency,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDARS
// =============================================================================

// SaveHoliday adds a holiday to a named calendar.
func (s *Store) SaveHoliday(ctx context.Context, calendar string, date time.Time, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (calendar, date, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(calendar, date) DO UPDATE SET name = excluded.name
	`, calendar, date.Format(dateLayout), name, time.Now().UTC().Format(timeLayout))
	return err
}

// Holidays returns the holiday dates of every stored calendar.
func (s *Store) Holidays(ctx context.Context) (map[string][]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT calendar, date FROM holidays ORDER BY calendar ASC, date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]time.Time)
	for rows.Next() {
		var calendar, date string
		if err := rows.Scan(&calendar, &date); err != nil {
			return nil, err
		}
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("holiday of %s: %w", calendar, err)
		}
		out[calendar] = append(out[calendar], t)
	}
	return out, rows.Err()
}

// LoadCalendars registers every stored calendar with the registry. Stored
// calendars replace configured ones of the same name.
func (s *Store) LoadCalendars(ctx context.Context, reg *conventions.Registry) error {
	calendars, err := s.Holidays(ctx)
	if err != nil {
		return fmt.Errorf("load calendars: %w", err)
	}
	for name, dates := range calendars {
		reg.Register(name, dates)
	}
	return nil
}

// =============================================================================
// RUN STORE (generic.RunStore interface)
// =============================================================================

// SaveRun persists a run. Append-only: a second save of an ID fails.
func (s *Store) SaveRun(ctx context.Context, run generic.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := json.Marshal(run.AnalysisTimes)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}
	events, err := json.Marshal(run.Events)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, contract_id, contract_type, analysis_json, events_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		string(run.ID),
		string(run.ContractID),
		run.ContractType,
		string(analysis),
		string(events),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("run %s: %w", run.ID, generic.ErrDuplicateRun)
		}
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns a run by ID, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id generic.RunID) (generic.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, contract_id, contract_type, analysis_json, events_json, created_at
		FROM runs WHERE id = ?
	`, string(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Run{}, fmt.Errorf("run %s: %w", id, generic.ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns the runs of one contract, oldest first.
func (s *Store) ListRuns(ctx context.Context, contractID generic.ContractID) ([]generic.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, contract_type, analysis_json, events_json, created_at
		FROM runs WHERE contract_id = ?
		ORDER BY created_at ASC, id ASC
	`, string(contractID))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []generic.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(row scanner) (generic.Run, error) {
	var run generic.Run
	var id, contractID, analysis, events, createdAt string
	if err := row.Scan(&id, &contractID, &run.ContractType, &analysis, &events, &createdAt); err != nil {
		return generic.Run{}, err
	}
	run.ID = generic.RunID(id)
	run.ContractID = generic.ContractID(contractID)
	if err := json.Unmarshal([]byte(analysis), &run.AnalysisTimes); err != nil {
		return generic.Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(events), &run.Events); err != nil {
		return generic.Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return run, nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"runs", "contingent_events", "observations", "holidays", "contracts"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
