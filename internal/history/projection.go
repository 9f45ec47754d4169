package history

import (
	"context"
	"encoding/json"
	"time"
)

// Build status values derived from the event stream.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
)

// BuildSummary is a read model reduced from one build's event stream.
type BuildSummary struct {
	BuildID      string     `json:"build_id"`
	Project      string     `json:"project,omitempty"`
	Status       string     `json:"status"`
	Outcome      string     `json:"outcome,omitempty"` // set once finished
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	StagesDone   []string   `json:"stages_done,omitempty"`
	ErrorStage   string     `json:"error_stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// stageCompletedPayload is the payload of EventStageCompleted.
type stageCompletedPayload struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// buildFinishedPayload is the payload of EventBuildFinished.
type buildFinishedPayload struct {
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Summarize reduces a build's events to its current summary.
func Summarize(buildID string, events []Event) BuildSummary {
	summary := BuildSummary{BuildID: buildID, Status: StatusPending}

	for _, ev := range events {
		switch ev.Type {
		case EventBuildStarted:
			summary.Status = StatusRunning
			summary.StartedAt = ev.Timestamp
			summary.Project = ev.Metadata["project"]
		case EventStageCompleted:
			var payload stageCompletedPayload
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				continue
			}
			summary.StagesDone = append(summary.StagesDone, payload.Stage)
			if payload.Error != "" {
				summary.ErrorStage = payload.Stage
				summary.ErrorMessage = payload.Error
			}
		case EventBuildFinished:
			var payload buildFinishedPayload
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				continue
			}
			summary.Status = StatusDone
			summary.Outcome = payload.Outcome
			if payload.Error != "" {
				summary.ErrorMessage = payload.Error
			}
			ts := ev.Timestamp
			summary.CompletedAt = &ts
		}
	}
	return summary
}

// SummarizeFromStore loads a build's events and reduces them.
func SummarizeFromStore(ctx context.Context, store Store, buildID string) (BuildSummary, error) {
	events, err := store.Events(ctx, buildID)
	if err != nil {
		return BuildSummary{}, err
	}
	return Summarize(buildID, events), nil
}
