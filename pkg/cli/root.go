// Package cli defines the cobra command tree for the survey service.
package cli

import (
	"github.com/spf13/cobra"

	"patientsurvey/pkg/config"
)

var flagEnvFile string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patientsurvey",
		Short:         "Patient satisfaction survey service",
		Long:          "Serves the patient satisfaction survey and the staff response listing, and manages its database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment (skipped when missing)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newHashPasswordCmd(),
		newVersionCmd(),
	)

	return root
}

// loadRuntime loads the dotenv file and reads the runtime configuration.
func loadRuntime() (*config.Runtime, error) {
	if flagEnvFile != "" {
		if err := config.LoadDotEnv(flagEnvFile); err != nil {
			return nil, err
		}
	}
	return config.LoadRuntime()
}
