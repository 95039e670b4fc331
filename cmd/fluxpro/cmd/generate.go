package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atmoslab/fluxpro/internal/config"
)

var (
	generateOutput string
	generateForce  bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an example configuration file",
	Long: `Write an example configuration file with documented defaults.

Edit the generated file to match your measurement setup before running
the pipeline.

Examples:
  # Write config.yaml to the current directory
  fluxpro generate

  # Write to a specific path
  fluxpro generate -o /etc/fluxpro/config.yaml

  # Overwrite an existing file
  fluxpro generate --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteExample(generateOutput, generateForce); err != nil {
			return err
		}
		fmt.Printf("Example config file written to %s\n", generateOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "config.yaml",
		"path of the generated config file")
	generateCmd.Flags().BoolVar(&generateForce, "force", false,
		"overwrite the file if it already exists")
}
