package session

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// ReplayFinding is one pre-recorded raw observation in a replay fixture.
type ReplayFinding struct {
	Payload    map[string]any       `yaml:"payload"`
	Location   *finding.RawLocation `yaml:"location,omitempty"`
	Severity   string               `yaml:"severity,omitempty"`
	Confidence *float64             `yaml:"confidence,omitempty"`
}

// replayFile is the on-disk YAML shape: recorded findings keyed by agent ID.
type replayFile struct {
	Findings map[string][]ReplayFinding `yaml:"findings"`
}

// LoadReplayFile reads a replay fixture mapping agent IDs to their recorded
// raw findings. Agents absent from the file simply publish nothing.
func LoadReplayFile(path string) (map[string][]ReplayFinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.SESSION_INVALID_REQUEST,
			fmt.Sprintf("failed to read replay file %s", path), err)
	}

	var file replayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, types.WrapError(types.SESSION_INVALID_REQUEST,
			fmt.Sprintf("failed to parse replay file %s", path), err)
	}

	return file.Findings, nil
}

// ReplayRunner is an AgentRunner that publishes pre-recorded findings
// instead of driving a live analysis tool. It exercises the full pipeline
// from the CLI and from tests without external tooling.
type ReplayRunner struct {
	desc registry.AgentDescriptor
	raws []ReplayFinding
}

// NewReplayRunner creates a replay runner for one agent descriptor.
func NewReplayRunner(desc registry.AgentDescriptor, raws []ReplayFinding) *ReplayRunner {
	return &ReplayRunner{desc: desc, raws: raws}
}

// Descriptor returns the static metadata of the replayed technique.
func (r *ReplayRunner) Descriptor() registry.AgentDescriptor {
	return r.desc
}

// Run publishes each recorded finding in order.
func (r *ReplayRunner) Run(ctx context.Context, task Task) error {
	for _, spec := range r.raws {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw := finding.NewRawFinding(r.desc.ID, task.SessionID, spec.Payload)
		if spec.Location != nil {
			raw = raw.WithLocation(*spec.Location)
		}
		if spec.Severity != "" {
			raw = raw.WithSeverity(spec.Severity)
		}
		if spec.Confidence != nil {
			raw = raw.WithConfidence(*spec.Confidence)
		}

		if err := task.Publish(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

// Ensure ReplayRunner implements AgentRunner at compile time.
var _ AgentRunner = (*ReplayRunner)(nil)
