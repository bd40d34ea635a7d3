package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardiokb/internal/apperr"
	"cardiokb/internal/store"
)

func newTestProcessor(t *testing.T) (*Processor, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, nil), s
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const valvularDoc = "Valvular Disease Guideline 2021\n\n1 Aortic stenosis\nGrading by gradient.\n2 Mitral regurgitation\nEtiology overview."

func TestProcess_SingleDocument(t *testing.T) {
	p, s := newTestProcessor(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "valvular.txt", valvularDoc)

	reports, err := p.Process(context.Background(), []string{path}, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	rep := reports[0]
	if rep.Status != store.IngestOK {
		t.Fatalf("expected ok, got %s (%s)", rep.Status, rep.ErrorDetail)
	}
	if rep.ChaptersExtracted != 2 {
		t.Errorf("expected 2 chapters, got %d", rep.ChaptersExtracted)
	}
	if len(rep.GuidelineHash) != 64 {
		t.Errorf("expected content hash in report, got %q", rep.GuidelineHash)
	}

	g, err := s.Guideline(context.Background(), rep.GuidelineSlug)
	if err != nil {
		t.Fatalf("stored guideline missing: %v", err)
	}
	if g.Year != 2021 {
		t.Errorf("expected year 2021, got %d", g.Year)
	}
}

func TestProcess_DuplicateReported(t *testing.T) {
	p, _ := newTestProcessor(t)
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", valvularDoc)
	b := writeDoc(t, dir, "b.txt", valvularDoc)

	reports, err := p.Process(context.Background(), []string{a, b}, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if reports[0].Status != store.IngestOK {
		t.Errorf("first: expected ok, got %s", reports[0].Status)
	}
	if reports[1].Status != store.IngestDuplicate {
		t.Errorf("second: expected duplicate, got %s", reports[1].Status)
	}
	if reports[1].GuidelineHash != reports[0].GuidelineHash {
		t.Errorf("duplicate must report the same hash")
	}
}

func TestProcess_FailureIsolation(t *testing.T) {
	p, s := newTestProcessor(t)
	dir := t.TempDir()
	ok1 := writeDoc(t, dir, "first.txt", valvularDoc)
	missing := filepath.Join(dir, "absent.txt")
	ok2 := writeDoc(t, dir, "third.txt", "Heart Failure Guideline 2022\n\n1 Staging\nStage A through D.")

	reports, err := p.Process(context.Background(), []string{ok1, missing, ok2}, 0)
	if err != nil {
		t.Fatalf("batch must not fail on one bad document: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	if reports[0].Status != store.IngestOK {
		t.Errorf("first: expected ok, got %s", reports[0].Status)
	}
	if reports[1].Status != store.IngestError || reports[1].ErrorDetail == "" {
		t.Errorf("second: expected error with detail, got %+v", reports[1])
	}
	if !strings.HasPrefix(reports[1].ErrorDetail, apperr.ErrIngestion.Error()) {
		t.Errorf("second: detail %q lacks the ingestion error kind", reports[1].ErrorDetail)
	}
	if reports[2].Status != store.IngestOK {
		t.Errorf("third: expected ok despite earlier failure, got %s", reports[2].Status)
	}

	st, _ := s.Status(context.Background())
	if len(st.Guidelines) != 2 {
		t.Errorf("expected 2 stored guidelines, got %d", len(st.Guidelines))
	}
}

func TestProcess_ReportsInInputOrder(t *testing.T) {
	p, _ := newTestProcessor(t)
	dir := t.TempDir()

	docs := []string{
		writeDoc(t, dir, "one.txt", "Doc One 2019\n\nbody one"),
		writeDoc(t, dir, "two.txt", "Doc Two 2020\n\nbody two"),
		writeDoc(t, dir, "three.txt", "Doc Three 2021\n\nbody three"),
	}

	reports, err := p.Process(context.Background(), docs, 4)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for i, rep := range reports {
		if rep.Path != docs[i] {
			t.Errorf("report %d is for %q, want %q", i, rep.Path, docs[i])
		}
		if rep.Status != store.IngestOK {
			t.Errorf("report %d: %s (%s)", i, rep.Status, rep.ErrorDetail)
		}
	}
}

func TestProcess_ParallelOverrideDoesNotStick(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Parallel = 2
	dir := t.TempDir()
	doc := writeDoc(t, dir, "one.txt", "Doc One 2019\n\nbody one")

	if _, err := p.Process(context.Background(), []string{doc}, 8); err != nil {
		t.Fatalf("process: %v", err)
	}
	if p.Parallel != 2 {
		t.Errorf("configured worker count changed to %d after a batch override", p.Parallel)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	p, _ := newTestProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := p.Process(ctx, []string{"whatever.txt"}, 0)
	if err == nil {
		t.Fatal("expected context error for a cancelled batch")
	}
	if len(reports) != 1 {
		t.Fatalf("expected a report slot per path, got %d", len(reports))
	}
}
