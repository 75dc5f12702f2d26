// SPDX-License-Identifier: Apache-2.0

// Package flags centralizes the viper-bound flag accessors shared by the
// debug commands in cmd.
package flags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ProjectDir returns the directory debug commands resolve .xtraqconfig and
// .xtraq/ state relative to.
func ProjectDir() string {
	return viper.GetString("PROJECT_DIR")
}

// OutputFormat returns the requested rendering for debug command output,
// either "json" or "yaml".
func OutputFormat() string {
	return viper.GetString("OUTPUT")
}

// Schemas returns the comma-separated --schemas flag split into a
// normalized allow-list, or nil when unset (meaning "all schemas").
func Schemas() []string {
	raw := viper.GetString("SCHEMAS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CommonFlags registers the flags shared by every debug command and binds
// them into viper under the XTRAQ_ environment prefix.
func CommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("project-dir", ".", "Project directory containing .xtraqconfig")
	cmd.PersistentFlags().String("output", "json", "Output format: json or yaml")
	cmd.PersistentFlags().String("schemas", "", "Comma-separated schema allow-list (default: all)")

	viper.BindPFlag("PROJECT_DIR", cmd.PersistentFlags().Lookup("project-dir"))
	viper.BindPFlag("OUTPUT", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("SCHEMAS", cmd.PersistentFlags().Lookup("schemas"))
}
