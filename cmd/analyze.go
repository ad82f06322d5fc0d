package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fatigue-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/fatigue-cli/internal/config"
	"github.com/KaramelBytes/fatigue-cli/internal/dataset"
	"github.com/KaramelBytes/fatigue-cli/internal/utils"
)

// loadFlags are the dataset and pipeline flags shared by analyze and analyze-batch.
// Each one overrides the config value only when set on the command line.
type loadFlags struct {
	format     string
	alpha      float64
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (lf *loadFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&lf.format, "format", "f", "", "output format: text | markdown | json (default from config)")
	c.Flags().Float64Var(&lf.alpha, "alpha", 0, "normality gate and forward-selection entry threshold (default from config)")
	c.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	c.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	c.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().IntVar(&lf.maxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func parseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported decimal separator: %s (use '.'|'comma')", s)
	}
}

func parseThousands(s string) (rune, error) {
	if s == " " {
		return ' ', nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space":
		return ' ', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported thousands separator: %s (use ','|'.'|'space')", s)
	}
}

func (lf *loadFlags) options(cmd *cobra.Command, c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = c.MaxRows
	opt.SheetName = c.SheetName
	opt.SheetIndex = c.SheetIndex
	decimal, thousands := c.DecimalSeparator, c.ThousandsSeparator

	f := cmd.Flags()
	if f.Changed("max-rows") {
		opt.MaxRows = lf.maxRows
	}
	if f.Changed("sheet-name") {
		opt.SheetName = lf.sheetName
	}
	if f.Changed("sheet-index") {
		opt.SheetIndex = lf.sheetIndex
	}
	if f.Changed("decimal") {
		decimal = lf.decimal
	}
	if f.Changed("thousands") {
		thousands = lf.thousands
	}
	var err error
	if opt.Delimiter, err = parseDelimiter(lf.delimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = parseDecimal(decimal); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = parseThousands(thousands); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("decimal and thousands separators must differ")
	}
	return opt, nil
}

func (lf *loadFlags) outputFormat(cmd *cobra.Command, c *cfgpkg.Global) string {
	if cmd.Flags().Changed("format") {
		return lf.format
	}
	return c.Format
}

// planFromConfig maps the study section onto pipeline roles.
func planFromConfig(c *cfgpkg.Global) analysis.Plan {
	conv := func(p cfgpkg.Pair) analysis.Pair { return analysis.Pair{Label: p.Label, Pre: p.Pre, Post: p.Post} }
	plan := analysis.Plan{
		Alpha:         c.Alpha,
		Primary:       conv(c.Study.Primary),
		CorrReference: c.Study.CorrReference,
		CorrWith:      append([]string(nil), c.Study.CorrWith...),
		Response:      c.Study.Response,
		Predictors:    append([]string(nil), c.Study.Predictors...),
	}
	for _, fp := range c.Study.FixedPairs {
		plan.FixedPairs = append(plan.FixedPairs, conv(fp))
	}
	return plan
}

func (lf *loadFlags) plan(cmd *cobra.Command, c *cfgpkg.Global) analysis.Plan {
	plan := planFromConfig(c)
	if cmd.Flags().Changed("alpha") {
		plan.Alpha = lf.alpha
	}
	return plan
}

// analyzeFile loads one input, runs the pipeline and renders the report.
func analyzeFile(path string, opt dataset.Options, plan analysis.Plan, format string) ([]byte, *analysis.Report, error) {
	tbl, err := dataset.Load(path, opt)
	if err != nil {
		return nil, nil, err
	}
	log.Debugw("dataset loaded", "path", path, "sheet", tbl.Sheet, "rows", tbl.Rows, "columns", tbl.Columns)
	rep, err := analysis.Run(tbl, plan, log)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tbl.Name, err)
	}
	out, err := analysis.Render(rep, format)
	if err != nil {
		return nil, nil, err
	}
	return out, rep, nil
}

var (
	anaFlags      loadFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir>",
	Short: "Run the fatigue analysis pipeline on a workbook or CSV",
	Long: `Analyze loads an .xlsx, .csv or .tsv file (or the first .xlsx in a directory), normalizes
column names and runs the fixed pipeline. Column roles come from the study section of the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		opt, err := anaFlags.options(cmd, c)
		if err != nil {
			return err
		}
		out, rep, err := analyzeFile(args[0], opt, anaFlags.plan(cmd, c), anaFlags.outputFormat(cmd, c))
		if err != nil {
			return err
		}
		for _, w := range rep.Warnings {
			warnf(cmd.ErrOrStderr(), "%s", w)
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			successf(cmd.OutOrStdout(), "Wrote analysis to %s", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
}
