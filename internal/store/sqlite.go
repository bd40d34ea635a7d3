package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"cardiokb/internal/apperr"
	"cardiokb/internal/model"
)

// SQLiteStore is the knowledge store over a SQLite database. Mutations take
// mu so two concurrent writes never interleave; reads go straight to the
// database and see either the pre- or post-write state of a row, never a
// torn one (each write is a single transaction).
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.Mutex
	entropy *rand.Rand
}

// Open opens or creates the knowledge database at the given path.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guidelines (
		content_hash TEXT PRIMARY KEY,
		slug         TEXT NOT NULL UNIQUE,
		title        TEXT NOT NULL,
		year         INTEGER NOT NULL DEFAULT 0,
		source_path  TEXT,
		ingested_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guidelines_slug ON guidelines(slug);

	CREATE TABLE IF NOT EXISTS chapters (
		id             TEXT PRIMARY KEY,
		guideline_hash TEXT NOT NULL REFERENCES guidelines(content_hash),
		title          TEXT NOT NULL,
		body           TEXT NOT NULL,
		keywords       TEXT,
		tables         TEXT,
		auto_generable INTEGER NOT NULL DEFAULT 0,
		order_index    INTEGER NOT NULL,
		UNIQUE (guideline_hash, title)
	);
	CREATE INDEX IF NOT EXISTS idx_chapters_guideline ON chapters(guideline_hash, order_index);

	CREATE TABLE IF NOT EXISTS memory_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		content    TEXT NOT NULL,
		keywords   TEXT,
		tags       TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// IngestGuideline stores a segmented guideline. When the content hash is
// already present the call is a no-op reporting IngestDuplicate; chapter
// counts stay untouched. The slug is adjusted with a numeric suffix if a
// different document already claimed it.
func (s *SQLiteStore) IngestGuideline(ctx context.Context, g model.Guideline) (IngestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestError, err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT slug FROM guidelines WHERE content_hash = ?`, g.ContentHash).Scan(&existing)
	if err == nil {
		return IngestDuplicate, nil
	}
	if err != sql.ErrNoRows {
		return IngestError, err
	}

	slug, err := uniqueSlug(ctx, tx, g.Slug)
	if err != nil {
		return IngestError, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO guidelines (content_hash, slug, title, year, source_path, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ContentHash, slug, g.Title, g.Year, g.SourcePath, now.Format(time.RFC3339))
	if err != nil {
		return IngestError, fmt.Errorf("insert guideline: %w", err)
	}

	for _, ch := range g.Chapters {
		keywordsJSON, _ := json.Marshal(ch.Keywords)
		tablesJSON, _ := json.Marshal(ch.Tables)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chapters (id, guideline_hash, title, body, keywords, tables, auto_generable, order_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.newID(), g.ContentHash, ch.Title, ch.Body,
			string(keywordsJSON), string(tablesJSON), boolToInt(ch.AutoGenerable), ch.OrderIndex)
		if err != nil {
			return IngestError, fmt.Errorf("insert chapter %q: %w", ch.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return IngestError, err
	}
	return IngestOK, nil
}

// uniqueSlug appends -2, -3... until the slug is free. The hash check above
// already ruled out the same document, so a collision here is a different
// document with the same title and year.
func uniqueSlug(ctx context.Context, tx *sql.Tx, slug string) (string, error) {
	candidate := slug
	for n := 2; ; n++ {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM guidelines WHERE slug = ?`, candidate).Scan(&one)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
}

// Guideline resolves a guideline by content hash or slug. Slug comparison
// is case-insensitive.
func (s *SQLiteStore) Guideline(ctx context.Context, identifier string) (model.Guideline, error) {
	var g model.Guideline
	var ingestedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash, slug, title, year, COALESCE(source_path, ''), ingested_at
		 FROM guidelines WHERE content_hash = ? OR slug = ? COLLATE NOCASE`,
		identifier, identifier).Scan(&g.ContentHash, &g.Slug, &g.Title, &g.Year, &g.SourcePath, &ingestedAt)
	if err == sql.ErrNoRows {
		return g, apperr.E(apperr.ErrNotFound, "guideline %q", identifier)
	}
	if err != nil {
		return g, err
	}
	g.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
	g.Chapters, err = s.chaptersOf(ctx, g.ContentHash)
	return g, err
}

// ListChapters returns the chapter outline of one guideline, in order.
func (s *SQLiteStore) ListChapters(ctx context.Context, identifier string) (Citation, []ChapterInfo, error) {
	g, err := s.Guideline(ctx, identifier)
	if err != nil {
		return Citation{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, keywords, tables, auto_generable, order_index
		 FROM chapters WHERE guideline_hash = ? ORDER BY order_index`, g.ContentHash)
	if err != nil {
		return Citation{}, nil, err
	}
	defer rows.Close()

	var infos []ChapterInfo
	for rows.Next() {
		var info ChapterInfo
		var keywordsJSON, tablesJSON sql.NullString
		var autoGen int
		if err := rows.Scan(&info.Title, &keywordsJSON, &tablesJSON, &autoGen, &info.OrderIndex); err != nil {
			return Citation{}, nil, err
		}
		info.AutoGenerable = autoGen != 0
		if keywordsJSON.Valid {
			json.Unmarshal([]byte(keywordsJSON.String), &info.Keywords)
		}
		if tablesJSON.Valid {
			var tables []model.Table
			json.Unmarshal([]byte(tablesJSON.String), &tables)
			info.TableCount = len(tables)
		}
		infos = append(infos, info)
	}
	citation := Citation{Slug: g.Slug, Title: g.Title, Year: g.Year}
	return citation, infos, rows.Err()
}

// StoreMemory appends a memory item and returns its id. Ids are assigned by
// SQLite's AUTOINCREMENT, so they are monotonic and never reused even after
// a crash. There is no update or delete: corrections are new items.
func (s *SQLiteStore) StoreMemory(ctx context.Context, p MemoryParams) (int64, error) {
	if strings.TrimSpace(p.Content) == "" {
		return 0, apperr.E(apperr.ErrValidation, "memory content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keywordsJSON, _ := json.Marshal(p.Keywords)
	tagsJSON, _ := json.Marshal(p.Tags)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_items (content, keywords, tags, created_at) VALUES (?, ?, ?, ?)`,
		p.Content, string(keywordsJSON), string(tagsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	return res.LastInsertId()
}

// Memories returns all memory items, oldest first.
func (s *SQLiteStore) Memories(ctx context.Context) ([]model.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, keywords, tags, created_at FROM memory_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.MemoryItem
	for rows.Next() {
		var m model.MemoryItem
		var keywordsJSON, tagsJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Content, &keywordsJSON, &tagsJSON, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if keywordsJSON.Valid {
			json.Unmarshal([]byte(keywordsJSON.String), &m.Keywords)
		}
		if tagsJSON.Valid {
			json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Status summarizes everything in the knowledge base.
func (s *SQLiteStore) Status(ctx context.Context) (Status, error) {
	var st Status

	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, slug, title, year, ingested_at FROM guidelines ORDER BY slug`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var gs GuidelineSummary
		var ingestedAt string
		if err := rows.Scan(&gs.ContentHash, &gs.Slug, &gs.Title, &gs.Year, &ingestedAt); err != nil {
			return st, err
		}
		gs.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
		st.Guidelines = append(st.Guidelines, gs)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	for i := range st.Guidelines {
		chapters, err := s.chaptersOf(ctx, st.Guidelines[i].ContentHash)
		if err != nil {
			return st, err
		}
		st.Guidelines[i].Chapters = len(chapters)
		for _, ch := range chapters {
			st.Guidelines[i].Tables += len(ch.Tables)
			if ch.AutoGenerable {
				st.Guidelines[i].AutoGen++
			}
		}
		st.TotalChapters += st.Guidelines[i].Chapters
		st.TotalTables += st.Guidelines[i].Tables
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_items`).Scan(&st.MemoryItems)
	return st, err
}

// chaptersOf loads all chapters of one guideline, in order.
func (s *SQLiteStore) chaptersOf(ctx context.Context, contentHash string) ([]model.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, body, keywords, tables, auto_generable, order_index
		 FROM chapters WHERE guideline_hash = ? ORDER BY order_index`, contentHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []model.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChapter(row scanner) (model.Chapter, error) {
	var ch model.Chapter
	var keywordsJSON, tablesJSON sql.NullString
	var autoGen int

	err := row.Scan(&ch.Title, &ch.Body, &keywordsJSON, &tablesJSON, &autoGen, &ch.OrderIndex)
	if err != nil {
		return ch, err
	}
	ch.AutoGenerable = autoGen != 0
	if keywordsJSON.Valid {
		json.Unmarshal([]byte(keywordsJSON.String), &ch.Keywords)
	}
	if tablesJSON.Valid {
		json.Unmarshal([]byte(tablesJSON.String), &ch.Tables)
	}
	return ch, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
