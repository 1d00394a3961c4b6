package session

import (
	"context"
	"time"

	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Task is the unit of work handed to an agent runner for one session.
type Task struct {
	// SessionID of the session the agent runs in.
	SessionID types.ID

	// ArtifactFingerprint identifies the artifact under analysis.
	ArtifactFingerprint string

	// Deadline is the hard bound for this agent's task, already clamped
	// to min(agent timeout, session deadline).
	Deadline time.Time

	// Publish delivers one raw finding onto the agent's output topic.
	// It never blocks on slow consumers.
	Publish func(ctx context.Context, raw finding.RawFinding) error
}

// AgentRunner drives one external analysis technique. The coordinator
// starts and monitors runners without inspecting their internals;
// cancellation is cooperative through the context, with the hard cutoff
// enforced by the coordinator's deadline.
//
// Implementations publish zero or more raw findings via task.Publish and
// return nil on completion, ctx.Err() when canceled, or any other error
// on failure.
type AgentRunner interface {
	// Descriptor returns the static metadata of the technique.
	Descriptor() registry.AgentDescriptor

	// Run executes the technique against the task's artifact.
	Run(ctx context.Context, task Task) error
}
