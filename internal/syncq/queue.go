// Package syncq holds API commands the CLI could not deliver so `leadrush sync` can replay them.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
}

// Queue is a JSON file of pending commands in Dir.
type Queue struct {
	Dir string
}

func New(dir string) *Queue {
	return &Queue{Dir: dir}
}

func (q *Queue) path() (string, error) {
	if err := os.MkdirAll(q.Dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(q.Dir, "queue.json"), nil
}

func (q *Queue) Load() ([]Command, error) {
	path, err := q.path()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queue) Save(commands []Command) error {
	path, err := q.path()
	if err != nil {
		return err
	}
	if len(commands) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func (q *Queue) Push(cmd Command) error {
	commands, err := q.Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands = append(commands, cmd)
	return q.Save(commands)
}

// Drain calls send for each queued command in order. It stops at the first
// failure and keeps that command and everything after it queued.
func (q *Queue) Drain(send func(Command) error) (sent int, err error) {
	commands, err := q.Load()
	if err != nil {
		return 0, err
	}
	for i, cmd := range commands {
		if err := send(cmd); err != nil {
			if saveErr := q.Save(commands[i:]); saveErr != nil {
				return sent, saveErr
			}
			return sent, err
		}
		sent++
	}
	return sent, q.Save(nil)
}
