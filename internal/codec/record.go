// Package codec maps domain timers to the persisted and exported document
// shape. Field names match the stored document written by earlier versions.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"countdown/internal/domain"
)

// TimeLayout is used for every timestamp in the document.
const TimeLayout = time.RFC3339Nano

// TimerRecord is one timer as stored on disk and exported.
type TimerRecord struct {
	ID                string `json:"_id" yaml:"id" cbor:"id"`
	Name              string `json:"name" yaml:"name" cbor:"name"`
	Duration          int    `json:"duration" yaml:"duration" cbor:"duration"`
	RemainingDuration int    `json:"remaining_duration" yaml:"remaining_duration" cbor:"remaining_duration"`
	Category          string `json:"category" yaml:"category" cbor:"category"`
	Status            string `json:"status" yaml:"status" cbor:"status"`
	MidTrigger        int    `json:"mid_trigger,omitempty" yaml:"mid_trigger,omitempty" cbor:"mid_trigger,omitempty"`
	CompletionTime    string `json:"completion_time,omitempty" yaml:"completion_time,omitempty" cbor:"completion_time,omitempty"`
	CreatedAt         string `json:"created_at" yaml:"created_at" cbor:"created_at"`
	UpdatedAt         string `json:"updated_at" yaml:"updated_at" cbor:"updated_at"`
}

// Document is the single persisted value holding the whole collection.
type Document struct {
	Timers     []TimerRecord `json:"timers"`
	Categories []string      `json:"categories"`
}

// FromTimer converts a domain timer to its record.
func FromTimer(t domain.Timer) TimerRecord {
	rec := TimerRecord{
		ID:                t.ID,
		Name:              t.Name,
		Duration:          t.Duration,
		RemainingDuration: t.RemainingDuration,
		Category:          t.Category,
		Status:            t.Status.String(),
		MidTrigger:        t.MidTrigger,
		CreatedAt:         formatTime(t.CreatedAt),
		UpdatedAt:         formatTime(t.UpdatedAt),
	}
	if t.CompletionTime != nil {
		rec.CompletionTime = formatTime(*t.CompletionTime)
	}
	return rec
}

// ToTimer converts a record back to a domain timer.
func (r TimerRecord) ToTimer() (domain.Timer, error) {
	status, ok := domain.ParseStatus(r.Status)
	if !ok {
		return domain.Timer{}, fmt.Errorf("timer %s: unknown status %q", r.ID, r.Status)
	}
	t := domain.Timer{
		ID:                r.ID,
		Name:              r.Name,
		Category:          r.Category,
		Duration:          r.Duration,
		RemainingDuration: r.RemainingDuration,
		Status:            status,
		MidTrigger:        r.MidTrigger,
	}
	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return domain.Timer{}, fmt.Errorf("timer %s: created_at: %w", r.ID, err)
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return domain.Timer{}, fmt.Errorf("timer %s: updated_at: %w", r.ID, err)
	}
	if strings.TrimSpace(r.CompletionTime) != "" {
		ct, err := parseTime(r.CompletionTime)
		if err != nil {
			return domain.Timer{}, fmt.Errorf("timer %s: completion_time: %w", r.ID, err)
		}
		t.CompletionTime = &ct
	}
	return t, nil
}

// Records converts a list of timers.
func Records(timers []domain.Timer) []TimerRecord {
	out := make([]TimerRecord, 0, len(timers))
	for _, t := range timers {
		out = append(out, FromTimer(t))
	}
	return out
}

// EncodeCollection renders the persisted JSON document.
func EncodeCollection(c domain.Collection) (string, error) {
	doc := Document{
		Timers:     Records(c.Timers),
		Categories: append([]string{}, c.Categories...),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal collection: %w", err)
	}
	return string(data), nil
}

// DecodeCollection parses the persisted JSON document. Timers that fail to
// convert are reported in skipped and left out of the result.
func DecodeCollection(raw string) (c domain.Collection, skipped []error, err error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.Collection{}, nil, fmt.Errorf("unmarshal collection: %w", err)
	}
	c.Timers = make([]domain.Timer, 0, len(doc.Timers))
	for _, rec := range doc.Timers {
		t, convErr := rec.ToTimer()
		if convErr != nil {
			skipped = append(skipped, convErr)
			continue
		}
		c.Timers = append(c.Timers, t)
	}
	c.Categories = doc.Categories
	if c.Categories == nil {
		c.Categories = []string{}
	}
	return c, skipped, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}
