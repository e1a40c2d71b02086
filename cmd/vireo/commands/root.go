package commands

import (
	"github.com/spf13/cobra"
)

func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:   "vireo",
		Short: "Vireo - routing and pipeline framework CLI",
		Long: `Vireo routes HTTP requests through a segment tree, runs middleware as
named reusable pipelines, and hands handlers a per-request typed state
container.

This CLI runs a development server and inspects configuration.`,
		Version: version,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd.Execute()
}
