// Package audit defines the document audit trail contract.
// The storage implementation compresses large change payloads.
package audit

import (
	"context"

	"pharmapos/internal/core/id"
)

// Action is the audited operation type.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRefund  Action = "refund"
	ActionAdjust  Action = "adjust"
	ActionReceive Action = "receive"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Actor      string
	Changes    any
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(_ context.Context, _ Entry) error { return nil }
