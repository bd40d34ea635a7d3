package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cardiokb/internal/apperr"
	"cardiokb/internal/chapterize"
	"cardiokb/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testGuideline(title string, year int, chapters ...model.Chapter) model.Guideline {
	body := title
	for _, ch := range chapters {
		body += "\n" + ch.Title + "\n" + ch.Body
	}
	for i := range chapters {
		chapters[i].OrderIndex = i
	}
	return model.Guideline{
		ContentHash: chapterize.HashText(body),
		Slug:        chapterize.Slugify(title, year),
		Title:       title,
		Year:        year,
		SourcePath:  "/tmp/" + chapterize.Slugify(title, year) + ".txt",
		Chapters:    chapters,
	}
}

func TestIngestAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := testGuideline("Valvular Disease", 2021,
		model.Chapter{Title: "Aortic stenosis", Body: "Severity grading by gradient.", Keywords: []string{"aortic", "stenosis"}},
		model.Chapter{Title: "Mitral regurgitation", Body: "Primary versus secondary."},
	)
	status, err := s.IngestGuideline(ctx, g)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if status != IngestOK {
		t.Fatalf("expected ok, got %s", status)
	}

	// Fetch by slug.
	got, err := s.Guideline(ctx, "valvular-disease-2021")
	if err != nil {
		t.Fatalf("fetch by slug: %v", err)
	}
	if len(got.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(got.Chapters))
	}
	if got.Chapters[0].Title != "Aortic stenosis" {
		t.Errorf("chapter order not preserved: %q", got.Chapters[0].Title)
	}

	// Fetch by content hash.
	byHash, err := s.Guideline(ctx, g.ContentHash)
	if err != nil {
		t.Fatalf("fetch by hash: %v", err)
	}
	if byHash.Slug != got.Slug {
		t.Errorf("hash and slug lookups disagree")
	}
}

func TestIngest_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := testGuideline("AF Guideline", 2020, model.Chapter{Title: "Anticoagulation", Body: "Score-based."})
	if _, err := s.IngestGuideline(ctx, g); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	status, err := s.IngestGuideline(ctx, g)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if status != IngestDuplicate {
		t.Fatalf("expected duplicate, got %s", status)
	}

	st, _ := s.Status(ctx)
	if len(st.Guidelines) != 1 {
		t.Errorf("duplicate ingest must not add rows, got %d guidelines", len(st.Guidelines))
	}
	if st.TotalChapters != 1 {
		t.Errorf("expected 1 chapter, got %d", st.TotalChapters)
	}
}

func TestIngest_SlugCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := testGuideline("Heart Failure", 2022, model.Chapter{Title: "Staging", Body: "Stage A through D."})
	b := testGuideline("Heart Failure", 2022, model.Chapter{Title: "Staging", Body: "Different revision of the text."})
	if a.ContentHash == b.ContentHash {
		t.Fatal("fixtures must differ in content")
	}

	if _, err := s.IngestGuideline(ctx, a); err != nil {
		t.Fatalf("ingest a: %v", err)
	}
	if _, err := s.IngestGuideline(ctx, b); err != nil {
		t.Fatalf("ingest b: %v", err)
	}

	if _, err := s.Guideline(ctx, "heart-failure-2022"); err != nil {
		t.Errorf("original slug missing: %v", err)
	}
	if _, err := s.Guideline(ctx, "heart-failure-2022-2"); err != nil {
		t.Errorf("suffixed slug missing: %v", err)
	}
}

func TestStoreMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.StoreMemory(ctx, MemoryParams{Content: "Local lab uses mmol/L for troponin.", Tags: []string{"lab"}})
	if err != nil {
		t.Fatalf("store memory: %v", err)
	}
	id2, _ := s.StoreMemory(ctx, MemoryParams{Content: "Second note."})
	if id2 <= id1 {
		t.Errorf("memory ids must increase: %d then %d", id1, id2)
	}

	if _, err := s.StoreMemory(ctx, MemoryParams{Content: "   "}); err == nil {
		t.Fatal("expected validation error for blank content")
	} else if apperr.KindOf(err) != apperr.ErrValidation {
		t.Errorf("expected ValidationError, got %v", err)
	}

	items, err := s.Memories(ctx)
	if err != nil {
		t.Fatalf("memories: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestGetChapter_ExactAndFuzzy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := testGuideline("Valvular Disease", 2021,
		model.Chapter{Title: "Aortic stenosis severity grading", Body: "Gradient and valve area thresholds."},
		model.Chapter{Title: "Mitral regurgitation", Body: "Etiology."},
	)
	if _, err := s.IngestGuideline(ctx, g); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Exact, case-insensitive.
	content, _, err := s.GetChapter(ctx, "valvular-disease-2021", "AORTIC STENOSIS SEVERITY GRADING")
	if err != nil {
		t.Fatalf("exact lookup: %v", err)
	}
	if content.Citation.Slug != "valvular-disease-2021" {
		t.Errorf("citation missing: %+v", content.Citation)
	}

	// Fuzzy: word order and small omissions resolve.
	content, _, err = s.GetChapter(ctx, "valvular-disease-2021", "severity grading aortic")
	if err != nil {
		t.Fatalf("fuzzy lookup: %v", err)
	}
	if content.Chapter.Title != "Aortic stenosis severity grading" {
		t.Errorf("fuzzy resolved to %q", content.Chapter.Title)
	}

	// Unresolvable: NotFound plus the real titles as suggestions.
	_, suggestions, err := s.GetChapter(ctx, "valvular-disease-2021", "dermatology")
	if err == nil {
		t.Fatal("expected NotFound")
	}
	if apperr.KindOf(err) != apperr.ErrNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected both titles as suggestions, got %v", suggestions)
	}

	// Unknown guideline.
	_, _, err = s.GetChapter(ctx, "no-such-guideline", "anything")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound for unknown guideline, got %v", err)
	}
}

func TestListChapters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := testGuideline("Valvular Disease", 2021,
		model.Chapter{Title: "One", Body: "a"},
		model.Chapter{Title: "Two", Body: "b", Tables: []model.Table{{Headers: []string{"1", "2"}, Rows: [][]string{{"3", "4"}}}}, AutoGenerable: true},
	)
	if _, err := s.IngestGuideline(ctx, g); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	cit, chapters, err := s.ListChapters(ctx, "valvular-disease-2021")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if cit.Title != "Valvular Disease" || cit.Year != 2021 {
		t.Errorf("unexpected citation %+v", cit)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[1].TableCount != 1 || !chapters[1].AutoGenerable {
		t.Errorf("table metadata lost: %+v", chapters[1])
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := testGuideline("Valvular Disease", 2021,
		model.Chapter{Title: "One", Body: "a", Tables: []model.Table{{Headers: []string{"1", "2"}, Rows: [][]string{{"3", "4"}}}}},
		model.Chapter{Title: "Two", Body: "b"},
	)
	s.IngestGuideline(ctx, g)
	s.StoreMemory(ctx, MemoryParams{Content: "note"})

	st, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.TotalChapters != 2 || st.TotalTables != 1 || st.MemoryItems != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if len(st.Guidelines) != 1 || st.Guidelines[0].Chapters != 2 {
		t.Errorf("unexpected summary %+v", st.Guidelines)
	}
}
