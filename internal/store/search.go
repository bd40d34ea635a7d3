package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"cardiokb/internal/model"
	"cardiokb/internal/rank"
)

// Search ranks every chapter and memory item against the query. Results are
// strictly non-increasing by score, ties broken by newer year, then slug,
// then title, and truncated to MaxResults. When nothing clears the minimum
// threshold the response instead carries the recovery aids.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) (SearchResponse, error) {
	limit := p.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	ranked, err := s.rankAll(ctx, p.Query)
	if err != nil {
		return SearchResponse{}, err
	}

	var resp SearchResponse
	for _, r := range ranked {
		if r.Score < rank.MinScoreThreshold {
			continue
		}
		resp.Results = append(resp.Results, r.Payload.(SearchResult))
		if len(resp.Results) == limit {
			break
		}
	}
	if len(resp.Results) > 0 {
		return resp, nil
	}

	// Nothing above threshold. Not an error: hand back a widened result set
	// (threshold relaxed to zero) and the full title list so the caller can
	// recover without guessing.
	for _, r := range ranked {
		if r.Score <= 0 {
			continue
		}
		resp.Widened = append(resp.Widened, r.Payload.(SearchResult))
		if len(resp.Widened) == limit {
			break
		}
	}
	titles, err := s.allChapterTitles(ctx)
	if err != nil {
		return SearchResponse{}, err
	}
	resp.AvailableTitles = titles
	return resp, nil
}

// rankAll scores every chapter and memory item and returns them in final
// ranked order. Each ranked entry's payload is a ready SearchResult.
func (s *SQLiteStore) rankAll(ctx context.Context, query string) ([]rank.Ranked, error) {
	terms := rank.Tokenize(query)

	var ranked []rank.Ranked

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.title, c.body, c.keywords, c.tables, g.slug, g.title, g.year
		 FROM chapters c JOIN guidelines g ON g.content_hash = c.guideline_hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var chTitle, body, gSlug, gTitle string
		var keywordsJSON, tablesJSON sql.NullString
		var year int
		if err := rows.Scan(&chTitle, &body, &keywordsJSON, &tablesJSON, &gSlug, &gTitle, &year); err != nil {
			return nil, err
		}
		var keywords []string
		if keywordsJSON.Valid {
			json.Unmarshal([]byte(keywordsJSON.String), &keywords)
		}
		var tables []model.Table
		if tablesJSON.Valid {
			json.Unmarshal([]byte(tablesJSON.String), &tables)
		}

		doc := rank.Doc{Title: chTitle, Body: body, Keywords: keywords, Year: year, Slug: gSlug}
		score, matched := rank.Score(doc, query, terms)
		ranked = append(ranked, rank.Ranked{
			Doc:     doc,
			Score:   score,
			Matched: matched,
			Payload: SearchResult{
				SourceType:      model.SourceChapter,
				GuidelineSlug:   gSlug,
				GuidelineTitle:  gTitle,
				Year:            year,
				Title:           chTitle,
				Preview:         preview(body),
				MatchedKeywords: matched,
				Score:           score,
				TableCount:      len(tables),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memories, err := s.Memories(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range memories {
		keywords := append(append([]string{}, m.Keywords...), m.Tags...)
		doc := rank.Doc{
			Title:    memoryTitle(m),
			Body:     m.Content,
			Keywords: keywords,
			Year:     m.CreatedAt.Year(),
		}
		score, matched := rank.Score(doc, query, terms)
		ranked = append(ranked, rank.Ranked{
			Doc:     doc,
			Score:   score,
			Matched: matched,
			Payload: SearchResult{
				SourceType:      model.SourceMemory,
				Year:            m.CreatedAt.Year(),
				Title:           doc.Title,
				Preview:         preview(m.Content),
				MatchedKeywords: matched,
				Score:           score,
				MemoryID:        m.ID,
			},
		})
	}

	rank.Sort(ranked)
	return ranked, nil
}

// allChapterTitles lists every chapter title across all guidelines, sorted.
func (s *SQLiteStore) allChapterTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM chapters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles, rows.Err()
}

func preview(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= PreviewLen {
		return body
	}
	return truncate(body, PreviewLen) + "..."
}

func memoryTitle(m model.MemoryItem) string {
	title := strings.TrimSpace(m.Content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > 80 {
		title = truncate(title, 80)
	}
	return title
}

// truncate cuts s to at most n bytes without splitting a rune. Clinical
// text carries symbols like µ and ≥ that span multiple bytes.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
