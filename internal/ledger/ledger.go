// Package ledger owns the function-proposal lifecycle: pending proposals,
// the approve/reject state machine, the versioned function registry, and
// the append-only audit trail of every decision. The only path by which
// generated code becomes a registered function runs through Approve.
package ledger

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cardiokb/internal/apperr"
	"cardiokb/internal/model"
)

// Ledger is the SQLite-backed proposal and registry store. Approve and
// Reject serialize on mu so a decision is atomic from the caller's point of
// view: either the proposal flips state and all records land, or nothing
// changes.
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the ledger database at the given path.
func Open(dbPath string) (*Ledger, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS proposals (
		id                  TEXT PRIMARY KEY,
		content_query       TEXT NOT NULL,
		source_slug         TEXT,
		source_title        TEXT,
		source_excerpt      TEXT,
		code                TEXT NOT NULL,
		tests               TEXT,
		code_hash           TEXT NOT NULL,
		requires_validation INTEGER NOT NULL DEFAULT 0,
		status              TEXT NOT NULL DEFAULT 'pending',
		created_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS approvals (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		proposal_id   TEXT NOT NULL REFERENCES proposals(id),
		function_name TEXT,
		version       INTEGER,
		outcome       TEXT NOT NULL,
		reason        TEXT,
		decided_by    TEXT,
		decided_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS registry (
		name          TEXT NOT NULL,
		version       INTEGER NOT NULL,
		code          TEXT NOT NULL,
		tests         TEXT,
		approved_from TEXT NOT NULL REFERENCES proposals(id),
		approved_at   TEXT NOT NULL,
		PRIMARY KEY (name, version)
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// CreateProposal stores a new pending proposal and returns it with its
// assigned id and timestamp. Proposals are never deduplicated: repeated
// generation for the same query yields independent proposals, each bound to
// its own hash.
func (l *Ledger) CreateProposal(ctx context.Context, p model.FunctionProposal) (model.FunctionProposal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p.ID = uuid.NewString()
	p.Status = model.StatusPending
	p.CreatedAt = time.Now().UTC()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO proposals (id, content_query, source_slug, source_title, source_excerpt,
		                        code, tests, code_hash, requires_validation, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ContentQuery, p.SourceSlug, p.SourceTitle, p.SourceExcerpt,
		p.GeneratedCode, p.GeneratedTests, p.CodeHash,
		boolToInt(p.RequiresValidation), string(p.Status), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return model.FunctionProposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	return p, nil
}

// Proposal fetches one proposal by id.
func (l *Ledger) Proposal(ctx context.Context, id string) (model.FunctionProposal, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, content_query, COALESCE(source_slug,''), COALESCE(source_title,''),
		        COALESCE(source_excerpt,''), code, COALESCE(tests,''), code_hash,
		        requires_validation, status, created_at
		 FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return p, apperr.E(apperr.ErrNotFound, "proposal %q", id)
	}
	return p, err
}

// ListProposals returns all proposals, newest first.
func (l *Ledger) ListProposals(ctx context.Context) ([]model.FunctionProposal, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, content_query, COALESCE(source_slug,''), COALESCE(source_title,''),
		        COALESCE(source_excerpt,''), code, COALESCE(tests,''), code_hash,
		        requires_validation, status, created_at
		 FROM proposals ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []model.FunctionProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// ApproveParams holds an approval decision.
type ApproveParams struct {
	ProposalID   string
	CodeHash     string
	FunctionName string
	ApprovedBy   string
}

// Approve runs the only pending→approved transition. The supplied code
// hash must equal the stored one exactly; the comparison is constant-time
// so approval can never succeed on a hash the approver did not reproduce.
// On success the function gets the next version for its name, a registry
// entry and an audit record are appended, and the proposal flips state,
// all in one transaction.
func (l *Ledger) Approve(ctx context.Context, p ApproveParams) (int, error) {
	if strings.TrimSpace(p.FunctionName) == "" {
		return 0, apperr.E(apperr.ErrValidation, "function name is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	prop, err := proposalForUpdate(ctx, tx, p.ProposalID)
	if err != nil {
		return 0, err
	}
	if prop.Status != model.StatusPending {
		return 0, apperr.E(apperr.ErrInvalidState,
			"proposal %s is %s, not pending", p.ProposalID, prop.Status)
	}
	if subtle.ConstantTimeCompare([]byte(prop.CodeHash), []byte(p.CodeHash)) != 1 {
		return 0, apperr.E(apperr.ErrHashMismatch,
			"supplied code hash does not match proposal %s", p.ProposalID)
	}

	var maxVersion sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM registry WHERE name = ?`, p.FunctionName).Scan(&maxVersion)
	if err != nil {
		return 0, err
	}
	version := int(maxVersion.Int64) + 1

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO registry (name, version, code, tests, approved_from, approved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.FunctionName, version, prop.GeneratedCode, prop.GeneratedTests, prop.ID, now)
	if err != nil {
		return 0, fmt.Errorf("insert registry entry: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO approvals (proposal_id, function_name, version, outcome, decided_by, decided_at)
		 VALUES (?, ?, ?, 'approved', ?, ?)`,
		prop.ID, p.FunctionName, version, nullable(p.ApprovedBy), now)
	if err != nil {
		return 0, fmt.Errorf("insert approval record: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE proposals SET status = 'approved' WHERE id = ?`, prop.ID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// RejectParams holds a rejection decision.
type RejectParams struct {
	ProposalID string
	Reason     string
	DecidedBy  string
}

// Reject runs the only pending→rejected transition. A non-empty reason is
// required; nothing is written to the registry.
func (l *Ledger) Reject(ctx context.Context, p RejectParams) error {
	if strings.TrimSpace(p.Reason) == "" {
		return apperr.E(apperr.ErrValidation, "rejection reason is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	prop, err := proposalForUpdate(ctx, tx, p.ProposalID)
	if err != nil {
		return err
	}
	if prop.Status != model.StatusPending {
		return apperr.E(apperr.ErrInvalidState,
			"proposal %s is %s, not pending", p.ProposalID, prop.Status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO approvals (proposal_id, outcome, reason, decided_by, decided_at)
		 VALUES (?, 'rejected', ?, ?, ?)`,
		prop.ID, p.Reason, nullable(p.DecidedBy), now)
	if err != nil {
		return fmt.Errorf("insert approval record: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE proposals SET status = 'rejected' WHERE id = ?`, prop.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Records returns the full audit trail, oldest decision first. Records are
// never edited or removed.
func (l *Ledger) Records(ctx context.Context) ([]model.ApprovalRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT proposal_id, COALESCE(function_name,''), COALESCE(version,0),
		        outcome, COALESCE(reason,''), COALESCE(decided_by,''), decided_at
		 FROM approvals ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ApprovalRecord
	for rows.Next() {
		var r model.ApprovalRecord
		var decidedAt string
		if err := rows.Scan(&r.ProposalID, &r.FunctionName, &r.Version,
			&r.Outcome, &r.Reason, &r.DecidedBy, &decidedAt); err != nil {
			return nil, err
		}
		r.DecidedAt, _ = time.Parse(time.RFC3339, decidedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Functions lists every registry entry, grouped by name, versions ascending.
func (l *Ledger) Functions(ctx context.Context) ([]model.RegistryEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT name, version, code, COALESCE(tests,''), approved_from, approved_at
		 FROM registry ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.RegistryEntry
	for rows.Next() {
		var e model.RegistryEntry
		var approvedAt string
		if err := rows.Scan(&e.Name, &e.Version, &e.Code, &e.Tests, &e.ApprovedFrom, &approvedAt); err != nil {
			return nil, err
		}
		e.ApprovedAt, _ = time.Parse(time.RFC3339, approvedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Function fetches one registered version. Version 0 means latest.
func (l *Ledger) Function(ctx context.Context, name string, version int) (model.RegistryEntry, error) {
	query := `SELECT name, version, code, COALESCE(tests,''), approved_from, approved_at
	          FROM registry WHERE name = ? ORDER BY version DESC LIMIT 1`
	args := []any{name}
	if version > 0 {
		query = `SELECT name, version, code, COALESCE(tests,''), approved_from, approved_at
		         FROM registry WHERE name = ? AND version = ?`
		args = []any{name, version}
	}

	var e model.RegistryEntry
	var approvedAt string
	err := l.db.QueryRowContext(ctx, query, args...).
		Scan(&e.Name, &e.Version, &e.Code, &e.Tests, &e.ApprovedFrom, &approvedAt)
	if err == sql.ErrNoRows {
		return e, apperr.E(apperr.ErrNotFound, "function %q version %d", name, version)
	}
	if err != nil {
		return e, err
	}
	e.ApprovedAt, _ = time.Parse(time.RFC3339, approvedAt)
	return e, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(row scanner) (model.FunctionProposal, error) {
	var p model.FunctionProposal
	var requiresValidation int
	var status, createdAt string

	err := row.Scan(&p.ID, &p.ContentQuery, &p.SourceSlug, &p.SourceTitle,
		&p.SourceExcerpt, &p.GeneratedCode, &p.GeneratedTests, &p.CodeHash,
		&requiresValidation, &status, &createdAt)
	if err != nil {
		return p, err
	}
	p.RequiresValidation = requiresValidation != 0
	p.Status = model.ProposalStatus(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

func proposalForUpdate(ctx context.Context, tx *sql.Tx, id string) (model.FunctionProposal, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, content_query, COALESCE(source_slug,''), COALESCE(source_title,''),
		        COALESCE(source_excerpt,''), code, COALESCE(tests,''), code_hash,
		        requires_validation, status, created_at
		 FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return p, apperr.E(apperr.ErrNotFound, "proposal %q", id)
	}
	return p, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
