package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fboiero/MIESC-sub012/internal/config"
	"github.com/fboiero/MIESC-sub012/internal/events"
	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/observability"
	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/report"
	"github.com/fboiero/MIESC-sub012/internal/session"
	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

var (
	analyzeArtifact string
	analyzeLayers   []string
	analyzeReplay   string
	analyzeDeadline time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a correlated analysis session and print the report as JSON",
	Long: `Analyze opens a session over the requested capability layers, runs
the registered agents against the artifact, correlates their findings and
prints the consensus report to stdout.

Without live tool adapters, --replay supplies a YAML fixture of recorded
raw findings per agent.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeArtifact, "artifact", "a", "", "Artifact fingerprint to analyze (required)")
	analyzeCmd.Flags().StringSliceVarP(&analyzeLayers, "layers", "l", nil, "Capability layers to invoke (default: all)")
	analyzeCmd.Flags().StringVarP(&analyzeReplay, "replay", "r", "", "YAML replay fixture of recorded findings (required)")
	analyzeCmd.Flags().DurationVarP(&analyzeDeadline, "deadline", "d", 0, "Session deadline (default from config)")
	analyzeCmd.MarkFlagRequired("artifact") //nolint:errcheck
	analyzeCmd.MarkFlagRequired("replay")   //nolint:errcheck
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger := observability.NewLogger(cfg.Logging, os.Stderr)

	tracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(ctx) //nolint:errcheck

	reg, err := registry.LoadFile(cfg.Core.RegistryPath)
	if err != nil {
		return err
	}

	recorded, err := session.LoadReplayFile(analyzeReplay)
	if err != nil {
		return err
	}

	layers, err := parseLayers(analyzeLayers)
	if err != nil {
		return err
	}

	deadline := analyzeDeadline
	if deadline <= 0 {
		deadline = cfg.Session.DefaultDeadline
	}

	coordinator := session.NewCoordinator(reg,
		session.WithLogger(logger),
		session.WithTracer(tracing.Tracer),
		session.WithAgentTimeout(cfg.Session.AgentTimeout),
		session.WithDrainGrace(cfg.Session.DrainGrace),
		session.WithBusOptions(events.WithDefaultBufferSize(cfg.Bus.BufferSize)),
		session.WithCorrelatorOptions(finding.WithAdjacencySlack(cfg.Correlation.AdjacencySlack)))

	for _, desc := range reg.List() {
		runner := session.NewReplayRunner(desc, recorded[desc.ID])
		if err := coordinator.RegisterRunner(runner); err != nil {
			return err
		}
	}

	id, err := coordinator.StartSession(ctx, session.Request{
		ArtifactFingerprint: analyzeArtifact,
		RequestedLayers:     layers,
		Deadline:            time.Now().Add(deadline),
	})
	if err != nil {
		return err
	}

	if err := coordinator.Await(ctx, id); err != nil {
		return err
	}

	sess, err := coordinator.Session(id)
	if err != nil {
		return err
	}

	standards, err := loadStandards(cfg.Core)
	if err != nil {
		return err
	}

	result, err := report.NewSynthesizer(standards).Synthesize(sess)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// parseLayers converts CLI layer names, defaulting to all layers.
func parseLayers(names []string) ([]types.CapabilityLayer, error) {
	if len(names) == 0 {
		return types.AllLayers(), nil
	}

	layers := make([]types.CapabilityLayer, 0, len(names))
	for _, name := range names {
		layer := types.CapabilityLayer(strings.ToLower(strings.TrimSpace(name)))
		if !layer.IsValid() {
			return nil, types.NewError(types.SESSION_INVALID_REQUEST,
				"unknown capability layer: "+name)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// loadStandards returns the standards mapper, preferring the configured
// override file over the built-in table.
func loadStandards(core config.CoreConfig) (taxonomy.StandardsMapper, error) {
	if core.StandardsPath == "" {
		return taxonomy.NewStaticMapper(), nil
	}
	return taxonomy.LoadStandardsFile(core.StandardsPath)
}
