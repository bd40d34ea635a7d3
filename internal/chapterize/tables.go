package chapterize

import (
	"regexp"
	"strings"

	"cardiokb/internal/model"
)

var (
	captionRe  = regexp.MustCompile(`(?i)^table\s+\d+`)
	multiSpace = regexp.MustCompile(`\s{2,}|\t+`)
)

// detectTables finds tabular regions in a chapter body: runs of two or more
// consecutive lines that split into the same number of columns, either on
// pipe characters or on runs of whitespace. The first row of a run becomes
// the header row.
func detectTables(body string) []model.Table {
	lines := strings.Split(body, "\n")

	var tables []model.Table
	var run [][]string
	var caption string

	flush := func() {
		if len(run) >= 2 {
			t := model.Table{
				Headers: run[0],
				Rows:    run[1:],
				Caption: caption,
			}
			tables = append(tables, t)
		}
		run = nil
		caption = ""
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		cells := splitColumns(trimmed)
		if len(cells) >= 2 {
			// Rows must keep a consistent column count to stay in the run.
			if len(run) > 0 && len(cells) != len(run[0]) {
				flush()
			}
			run = append(run, cells)
			continue
		}
		flush()
		if captionRe.MatchString(trimmed) {
			caption = trimmed
		}
	}
	flush()

	return tables
}

// splitColumns splits a line into column cells. Pipe-delimited lines win;
// otherwise runs of two or more spaces (or tabs) delimit columns.
func splitColumns(line string) []string {
	if line == "" {
		return nil
	}
	var parts []string
	if strings.Contains(line, "|") {
		parts = strings.Split(strings.Trim(line, "|"), "|")
	} else {
		parts = multiSpace.Split(line, -1)
	}
	var cells []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}
