// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is a persisted workflow execution.
type Run struct {
	ID        string           `json:"id" yaml:"id"`
	Topic     string           `json:"topic" yaml:"topic"`
	Status    string           `json:"status" yaml:"status"`
	Version   int              `json:"version" yaml:"version"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" yaml:"updated_at"`
	State     *types.BlogState `json:"state" yaml:"state"`
}

// SaveRun records state under its RunID with the given status. The first
// save sets created_at; later saves update the status and snapshot.
func (s *Store) SaveRun(ctx context.Context, state *types.BlogState, status string) error {
	if state.RunID == "" {
		return errors.New("saving run: state has no run id")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	ts := timestamp(now())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic, status, version, created_at, updated_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, version = excluded.version,
			updated_at = excluded.updated_at, state = excluded.state`,
		state.RunID, state.Topic, status, state.Version, ts, ts, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", state.RunID, err)
	}
	return nil
}

// GetRun returns the run with id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		r                    Run
		created, updated, st string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, status, version, created_at, updated_at, state FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Topic, &r.Status, &r.Version, &created, &updated, &st)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}
	r.CreatedAt = parseTimestamp(created)
	r.UpdatedAt = parseTimestamp(updated)
	r.State = &types.BlogState{}
	if err := json.Unmarshal([]byte(st), r.State); err != nil {
		return nil, fmt.Errorf("decoding run state %s: %w", id, err)
	}
	return &r, nil
}
