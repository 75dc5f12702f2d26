// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuetzliches/xtraq/cmd/flags"
	"github.com/nuetzliches/xtraq/pkg/catalog"
	"github.com/nuetzliches/xtraq/pkg/invalidation"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
	"github.com/nuetzliches/xtraq/pkg/xtraqlog"
)

// analyzeCmd exercises the C1->C5 wiring end to end against an empty
// in-memory catalog.Fake, since there is no concrete CatalogReader to point
// at a real SQL Server. It is useful for inspecting the persisted cache and
// refresh-plan documents a run produces, not for generating real output.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run InvalidationOrchestrator.AnalyzeAndInvalidate against an empty catalog fake",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := snapshot.New(flags.ProjectDir())

		orchestrator, err := invalidation.Initialize(catalog.NewFake(), store, xtraqlog.NewLogger())
		if err != nil {
			return err
		}

		result, err := orchestrator.AnalyzeAndInvalidate(cmd.Context(), schemaFilterOf(flags.Schemas()))
		if err != nil {
			return err
		}

		return render(result, flags.OutputFormat())
	},
}

func schemaFilterOf(schemas []string) map[string]struct{} {
	if len(schemas) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(schemas))
	for _, s := range schemas {
		out[strings.ToLower(s)] = struct{}{}
	}
	return out
}
