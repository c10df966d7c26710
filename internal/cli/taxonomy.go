package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/narrascan/internal/extract"
)

var taxonomyPath string

// taxonomyCmd prints the uncertainty cue taxonomy
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the uncertainty cue taxonomy",
	Long: `Print the versioned uncertainty cue taxonomy as YAML.

The embedded taxonomy is used unless --file points at a replacement; the
output is a valid starting point for a custom taxonomy file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tax := extract.DefaultTaxonomy()
		if taxonomyPath != "" {
			loaded, err := extract.LoadTaxonomy(taxonomyPath)
			if err != nil {
				return err
			}
			tax = loaded
		}

		data, err := tax.YAML()
		if err != nil {
			return fmt.Errorf("encode taxonomy: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.Flags().StringVar(&taxonomyPath, "file", "", "taxonomy YAML to validate and print")
}
