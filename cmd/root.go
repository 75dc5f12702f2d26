// SPDX-License-Identifier: Apache-2.0

// Package cmd wires a thin cobra/viper CLI over the Xtraq core packages for
// manual testing: it does not reimplement the generator, and carries no
// progress UI, templating, or telemetry upload.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nuetzliches/xtraq/cmd/flags"
)

// Version is set by the build at link time; "development" otherwise.
var Version = "development"

func init() {
	viper.SetEnvPrefix("XTRAQ")
	viper.AutomaticEnv()

	flags.CommonFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "xtraq",
	Short:        "Debug wiring for the Xtraq core packages",
	SilenceUsage: true,
	Version:      Version,
}

// Execute registers every debug command and runs the root command.
func Execute() error {
	rootCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(analyzeCmd)

	return rootCmd.Execute()
}
