package chapterize

import (
	"strings"
	"testing"

	"cardiokb/internal/model"
)

func doc(pages ...string) Document {
	d := Document{Title: "Test Guideline", Year: 2023}
	for i, text := range pages {
		d.Pages = append(d.Pages, Page{Number: i + 1, Text: text})
	}
	return d
}

func TestSegment_NumberedHeadings(t *testing.T) {
	d := doc("1 Introduction\nBackground text here.\n2 Diagnosis\nUse echo.\n2.1 Severity grading\nGradient thresholds.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d: %+v", len(chapters), chapters)
	}
	if chapters[0].Title != "1 Introduction" {
		t.Errorf("unexpected first title %q", chapters[0].Title)
	}
	if chapters[2].Title != "2.1 Severity grading" {
		t.Errorf("unexpected third title %q", chapters[2].Title)
	}
	if chapters[1].Body != "Use echo." {
		t.Errorf("unexpected body %q", chapters[1].Body)
	}
	for i, ch := range chapters {
		if ch.OrderIndex != i {
			t.Errorf("chapter %d has order index %d", i, ch.OrderIndex)
		}
	}
}

func TestSegment_AllCapsAndColonHeadings(t *testing.T) {
	d := doc("MANAGEMENT OF HEART FAILURE\nDiuretics first.\nDosing recommendations:\nStart low.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "MANAGEMENT OF HEART FAILURE" {
		t.Errorf("unexpected title %q", chapters[0].Title)
	}
	if chapters[1].Title != "Dosing recommendations:" {
		t.Errorf("unexpected title %q", chapters[1].Title)
	}
}

func TestSegment_LongLinesAreNotHeadings(t *testing.T) {
	long := strings.Repeat("A", 120)
	d := doc("1 Overview\nIntro.\n" + long + "\nMore body.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if !strings.Contains(chapters[0].Body, long) {
		t.Error("long line should stay in the body")
	}
}

func TestSegment_FallbackChapter(t *testing.T) {
	d := doc("just some prose without any structure at all.\nmore prose.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 1 {
		t.Fatalf("expected 1 fallback chapter, got %d", len(chapters))
	}
	if chapters[0].Title != "Test Guideline" {
		t.Errorf("fallback should use the document title, got %q", chapters[0].Title)
	}
	if !strings.Contains(chapters[0].Body, "more prose") {
		t.Errorf("fallback body incomplete: %q", chapters[0].Body)
	}
}

func TestSegment_DropsUntitledFrontMatter(t *testing.T) {
	d := doc("Copyright notice.\nPublisher address.\n1 Scope\nActual content.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].Title != "1 Scope" {
		t.Errorf("expected front matter dropped, got %q", chapters[0].Title)
	}
	if chapters[0].OrderIndex != 0 {
		t.Errorf("order index should be renumbered, got %d", chapters[0].OrderIndex)
	}
}

func TestSegment_DedupesTitles(t *testing.T) {
	d := doc("RECOMMENDATIONS\nFirst block.\nINTERLUDE SECTION\nMiddle.\nRECOMMENDATIONS\nSecond block.")
	chapters := NewHeuristic().Segment(d)

	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	if chapters[2].Title != "RECOMMENDATIONS (2)" {
		t.Errorf("expected deduped title, got %q", chapters[2].Title)
	}
}

func TestSegment_AutoGenerableFromNumericTable(t *testing.T) {
	body := "1 Grading\nSeverity thresholds below.\n" +
		"1.0 | 25 | 3.0\n" +
		"1.5 | 40 | 4.0\n" +
		"2.0 | 60 | 5.0"
	chapters := NewHeuristic().Segment(doc(body))

	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	ch := chapters[0]
	if len(ch.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(ch.Tables))
	}
	if !ch.AutoGenerable {
		t.Error("chapter with an all-numeric table should be auto-generable")
	}
}

func TestSegment_NarrativeIsNotAutoGenerable(t *testing.T) {
	chapters := NewHeuristic().Segment(doc("1 Advice\nPurely narrative recommendation text, no tables."))
	if chapters[0].AutoGenerable {
		t.Error("narrative chapter must not be auto-generable")
	}
}

func TestDetectTables(t *testing.T) {
	body := "Table 1 severity grading\n" +
		"Grade | Gradient | Area\n" +
		"Mild | <25 | >1.5\n" +
		"Severe | >40 | <1.0\n" +
		"Trailing prose."
	tables := detectTables(body)

	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tab := tables[0]
	if len(tab.Headers) != 3 || tab.Headers[0] != "Grade" {
		t.Errorf("unexpected headers %v", tab.Headers)
	}
	if len(tab.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(tab.Rows))
	}
	if tab.Caption != "Table 1 severity grading" {
		t.Errorf("unexpected caption %q", tab.Caption)
	}
}

func TestDetectTables_WhitespaceColumns(t *testing.T) {
	body := "Stage    Pressure    Outcome\nA        10          Good\nB        20          Poor"
	tables := detectTables(body)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if len(tables[0].Headers) != 3 {
		t.Errorf("unexpected headers %v", tables[0].Headers)
	}
}

func TestDetectTables_InconsistentColumnsSplitRuns(t *testing.T) {
	body := "a | b\nc | d\ne | f | g\nh | i | j"
	tables := detectTables(body)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
}

func TestExtractKeywords(t *testing.T) {
	body := strings.Repeat("stenosis gradient ", 5) + "valve measurement chamber"
	kws := extractKeywords("Aortic severity", body, 4)

	if len(kws) != 4 {
		t.Fatalf("expected 4 keywords, got %v", kws)
	}
	// Title terms are pinned to the front.
	if kws[0] != "aortic" && kws[1] != "aortic" {
		t.Errorf("title term should lead: %v", kws)
	}
	for _, k := range kws {
		if k != strings.ToLower(k) {
			t.Errorf("keyword %q not lowercase", k)
		}
	}
}

func TestBuild_StableIdentity(t *testing.T) {
	d := doc("1 Scope\nContent body.")
	g1 := Build(d, NewHeuristic())
	g2 := Build(d, NewHeuristic())

	if g1.ContentHash != g2.ContentHash {
		t.Error("same bytes must hash identically")
	}
	if len(g1.ContentHash) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(g1.ContentHash))
	}
	if g1.Slug != "test-guideline-2023" {
		t.Errorf("unexpected slug %q", g1.Slug)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		year  int
		want  string
	}{
		{"ESC Valvular Heart Disease", 2021, "esc-valvular-heart-disease-2021"},
		{"  Spaced  &  Symbols!! ", 0, "spaced-symbols"},
		{"", 2020, "untitled-2020"},
	}
	for _, c := range cases {
		if got := Slugify(c.title, c.year); got != c.want {
			t.Errorf("Slugify(%q, %d) = %q, want %q", c.title, c.year, got, c.want)
		}
	}
}

func TestTableNumeric(t *testing.T) {
	numeric := model.Table{
		Headers: []string{"Grade", "Gradient"},
		Rows:    [][]string{{"1.0", "25"}, {"2.5", ">40"}},
	}
	if !numeric.Numeric() {
		t.Error("numeric table not detected")
	}
	prose := model.Table{
		Headers: []string{"Grade", "Advice"},
		Rows:    [][]string{{"1", "watchful waiting"}},
	}
	if prose.Numeric() {
		t.Error("prose table wrongly numeric")
	}
}
