// Package jobs runs the background worker that keeps list caches warm.
package jobs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every task is enqueued on.
	QueueDefault = "default"
	// TaskListWarmup loads whole collections into the list cache.
	TaskListWarmup = "listview:warmup"
)

// ListWarmupPayload names the lists to warm. Empty means all of them.
type ListWarmupPayload struct {
	Lists []string `json:"lists,omitempty"`
}

// NewListWarmupTask builds a warmup task for lists.
func NewListWarmupTask(lists ...string) (*asynq.Task, error) {
	clean := make([]string, 0, len(lists))
	for _, l := range lists {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" && !slices.Contains(clean, l) {
			clean = append(clean, l)
		}
	}
	data, err := json.Marshal(ListWarmupPayload{Lists: clean})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode warmup payload: %w", err)
	}
	return asynq.NewTask(TaskListWarmup, data, asynq.Queue(QueueDefault)), nil
}
