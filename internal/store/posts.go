// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const defaultListLimit = 20

// SavePost inserts or replaces p.
func (s *Store) SavePost(ctx context.Context, p *types.Post) error {
	sources, err := json.Marshal(p.Sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}
	var score sql.NullFloat64
	if p.QualityScore != nil {
		score = sql.NullFloat64{Float64: *p.QualityScore, Valid: true}
	}

	// Upsert rather than REPLACE so the rowid, and with it the FTS row, is
	// updated in place.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO posts (id, run_id, topic, title, body, tone, audience, word_count, quality_score, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id, topic = excluded.topic, title = excluded.title,
			body = excluded.body, tone = excluded.tone, audience = excluded.audience,
			word_count = excluded.word_count, quality_score = excluded.quality_score,
			sources = excluded.sources`,
		p.ID, p.RunID, p.Topic, p.Title, p.Body, p.Tone, p.Audience, p.WordCount,
		score, string(sources), timestamp(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving post %s: %w", p.ID, err)
	}
	return nil
}

const postColumns = `p.id, p.run_id, p.topic, p.title, p.body, p.tone, p.audience, p.word_count, p.quality_score, p.sources, p.created_at`

// GetPost returns the post with id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id string) (*types.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading post %s: %w", id, err)
	}
	return p, nil
}

// ListPosts returns the most recent posts, newest first.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]*types.Post, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return collectPosts(rows)
}

// SearchPosts finds posts whose title or body match query. With FTS5 the
// results are ranked by relevance; otherwise every term must appear
// (case-insensitively) and results are newest first.
func (s *Store) SearchPosts(ctx context.Context, query string, limit int) ([]*types.Post, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return s.ListPosts(ctx, limit)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if s.fts {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+postColumns+`
			FROM posts_fts
			JOIN posts p ON p.rowid = posts_fts.rowid
			WHERE posts_fts MATCH ?
			ORDER BY posts_fts.rank
			LIMIT ?`, ftsQuery(terms), limit)
	} else {
		var qb strings.Builder
		var args []any
		qb.WriteString(`SELECT ` + postColumns + ` FROM posts p WHERE 1=1`)
		for _, t := range terms {
			qb.WriteString(` AND (p.title LIKE ? ESCAPE '\' OR p.body LIKE ? ESCAPE '\')`)
			pat := "%" + escapeLike(t) + "%"
			args = append(args, pat, pat)
		}
		qb.WriteString(` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`)
		args = append(args, limit)
		rows, err = s.db.QueryContext(ctx, qb.String(), args...)
	}
	if err != nil {
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return collectPosts(rows)
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*types.Post, error) {
	var (
		p         types.Post
		tone      sql.NullString
		audience  sql.NullString
		words     sql.NullInt64
		score     sql.NullFloat64
		sources   sql.NullString
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.RunID, &p.Topic, &p.Title, &p.Body, &tone, &audience,
		&words, &score, &sources, &createdAt); err != nil {
		return nil, err
	}
	p.Tone = tone.String
	p.Audience = audience.String
	p.WordCount = int(words.Int64)
	if score.Valid {
		v := score.Float64
		p.QualityScore = &v
	}
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &p.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources: %w", err)
		}
	}
	p.CreatedAt = parseTimestamp(createdAt)
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]*types.Post, error) {
	defer rows.Close()
	var posts []*types.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	return posts, nil
}
