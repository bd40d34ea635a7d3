package store

import (
	"context"
	"database/sql"
	"strings"

	"cardiokb/internal/apperr"
	"cardiokb/internal/model"
	"cardiokb/internal/rank"
)

// MinTitleSimilarity is the token-overlap floor below which a fuzzy title
// match is rejected rather than guessed.
const MinTitleSimilarity = 0.25

// GetChapter retrieves one full chapter by guideline identifier (content
// hash or slug) and title. The title lookup is exact but case-insensitive;
// on a miss the best fuzzy match by token overlap is used, and when even
// that is too weak the error carries the guideline's real chapter titles as
// suggestions.
func (s *SQLiteStore) GetChapter(ctx context.Context, identifier, title string) (ChapterContent, []string, error) {
	g, err := s.Guideline(ctx, identifier)
	if err != nil {
		return ChapterContent{}, nil, err
	}
	citation := Citation{Slug: g.Slug, Title: g.Title, Year: g.Year}

	ch, err := s.chapterByTitle(ctx, g.ContentHash, title)
	if err == nil {
		return ChapterContent{Chapter: ch, Citation: citation}, nil, nil
	}
	if err != sql.ErrNoRows {
		return ChapterContent{}, nil, err
	}

	// Fuzzy fallback, restricted to this guideline's titles.
	chapters := g.Chapters
	titles := make([]string, len(chapters))
	best, bestSim := -1, 0.0
	for i, ch := range chapters {
		titles[i] = ch.Title
		if sim := rank.Similarity(ch.Title, title); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best >= 0 && bestSim >= MinTitleSimilarity {
		return ChapterContent{Chapter: chapters[best], Citation: citation}, nil, nil
	}

	return ChapterContent{}, titles,
		apperr.E(apperr.ErrNotFound, "chapter %q in guideline %q", title, g.Slug)
}

func (s *SQLiteStore) chapterByTitle(ctx context.Context, contentHash, title string) (model.Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT title, body, keywords, tables, auto_generable, order_index
		 FROM chapters WHERE guideline_hash = ? AND title = ? COLLATE NOCASE
		 LIMIT 1`, contentHash, strings.TrimSpace(title))
	return scanChapter(row)
}
