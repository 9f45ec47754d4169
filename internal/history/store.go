// Package history persists build records and their lifecycle events so past
// builds can be listed and inspected after the fact.
package history

import (
	"context"
	"time"
)

// Event types appended during a build's lifecycle.
const (
	EventBuildStarted   = "build.started"
	EventStageCompleted = "stage.completed"
	EventBuildFinished  = "build.finished"
)

// Event is one lifecycle event of a build.
type Event struct {
	ID        int64             `json:"id"`
	BuildID   string            `json:"build_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   []byte            `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// BuildRecord is the stored summary of one completed (or running) build.
type BuildRecord struct {
	ID       string        `json:"id"`
	Project  string        `json:"project"`
	Ref      string        `json:"ref,omitempty"`
	Commit   string        `json:"commit,omitempty"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Store is the build history persistence interface.
type Store interface {
	AppendEvent(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
	Events(ctx context.Context, buildID string) ([]Event, error)
	RecordBuild(ctx context.Context, rec BuildRecord) error
	GetBuild(ctx context.Context, id string) (*BuildRecord, error)
	ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// NopStore discards everything; used when history is disabled.
type NopStore struct{}

func (NopStore) AppendEvent(context.Context, string, string, []byte, map[string]string) error {
	return nil
}
func (NopStore) Events(context.Context, string) ([]Event, error) { return nil, nil }
func (NopStore) RecordBuild(context.Context, BuildRecord) error  { return nil }
func (NopStore) GetBuild(context.Context, string) (*BuildRecord, error) {
	return nil, ErrBuildNotFound
}
func (NopStore) ListBuilds(context.Context, int) ([]BuildRecord, error) { return nil, nil }
func (NopStore) Prune(context.Context, time.Time) (int64, error)        { return 0, nil }
func (NopStore) Close() error                                           { return nil }
