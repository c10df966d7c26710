package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/pipeline"
)

var (
	outJSON string
	outMD   string
	timeout time.Duration
	caseID  string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract evidence-anchored signals from one narrative",
	Long: `Extract reads one narrative (a .txt/.html file, a single-case .jsonl/.yaml
file, or stdin) and returns:
- presence (present / absent / indeterminate) for each tracked signal
- quoted evidence with exact byte offsets into the narrative
- temporal context, uncertainty cues and missing information
- uncertainty-cue hits from the versioned taxonomy

Without --json or --md the result is printed to stdout as JSON.

Example:
  narrascan extract note.txt
  echo "Denies SI. Attempted overdose in 2019." | narrascan extract -
  narrascan extract note.txt --backend external --provider openai --json out.json --md out.md
  narrascan extract note.txt --project`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { return bindToViper(cmd) },
	RunE:    runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	bindExtractionFlags(extractCmd)
	extractCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	extractCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	extractCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "caller-side timeout for the extraction")
	extractCmd.Flags().StringVar(&caseID, "case-id", "", "case ID for stdin input")
}

func runExtract(cmd *cobra.Command, args []string) error {
	c, err := readSingleCase(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if a.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Extracting case %s with %s\n", c.ID, a.modelName)
	}

	cr, err := a.pipeline.Process(ctx, c)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if outJSON == "" && outMD == "" {
		return pipeline.EncodeJSON(cmd.OutOrStdout(), cr.Document())
	}

	if err := a.pipeline.Write(cr, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	a.pipeline.Renderer().RenderSummary(cmd.ErrOrStderr(), cr)
	return nil
}

func readSingleCase(cmd *cobra.Command, args []string) (model.Case, error) {
	if len(args) == 0 || args[0] == "-" {
		return pipeline.ReadCase(cmd.InOrStdin(), caseID)
	}

	cases, err := pipeline.LoadCases(args[0])
	if err != nil {
		return model.Case{}, err
	}
	switch len(cases) {
	case 0:
		return model.Case{}, fmt.Errorf("no case found in %s", args[0])
	case 1:
		return cases[0], nil
	default:
		return model.Case{}, fmt.Errorf("%s holds %d cases; use 'narrascan batch'", args[0], len(cases))
	}
}
