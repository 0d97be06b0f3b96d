package tasks

import (
	"fmt"
	"time"

	"sand/api/internal/ids"
)

const TypeSessionReap = "session_reap"

// Task is the envelope carried on the job stream.
type Task struct {
	ID         string
	Type       string
	EnqueuedAt time.Time
}

func NewTask(taskType string) Task {
	return Task{
		ID:         ids.New(),
		Type:       taskType,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Values flattens the task into stream entry fields.
func (t Task) Values() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"type":        t.Type,
		"enqueued_at": t.EnqueuedAt.Format(time.RFC3339Nano),
	}
}

// DecodeTask reads a task back from stream entry fields, which redis
// returns as strings.
func DecodeTask(values map[string]any) (Task, error) {
	str := func(key string) (string, error) {
		raw, ok := values[key]
		if !ok {
			return "", fmt.Errorf("missing field %q", key)
		}
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("field %q is %T, want string", key, raw)
		}
		return s, nil
	}

	id, err := str("id")
	if err != nil {
		return Task{}, err
	}
	taskType, err := str("type")
	if err != nil {
		return Task{}, err
	}

	task := Task{ID: id, Type: taskType}
	if raw, err := str("enqueued_at"); err == nil {
		if task.EnqueuedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return Task{}, fmt.Errorf("parse enqueued_at: %w", err)
		}
	}
	return task, nil
}
