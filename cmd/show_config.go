// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nuetzliches/xtraq/cmd/flags"
	"github.com/nuetzliches/xtraq/pkg/config"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Resolve and print the effective ConfigResolver output for --project-dir",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Resolve(flags.ProjectDir(), nil)
		if err != nil {
			return err
		}
		return render(cfg, flags.OutputFormat())
	},
}
