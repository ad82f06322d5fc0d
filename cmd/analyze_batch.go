package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fatigue-cli/internal/analysis"
	"github.com/KaramelBytes/fatigue-cli/internal/utils"
)

var (
	abFlags  loadFlags
	abOutDir string
	abQuiet  bool
)

func reportExt(format string) string {
	switch strings.ToLower(format) {
	case analysis.FormatJSON:
		return ".json"
	case analysis.FormatMarkdown, "md":
		return ".md"
	default:
		return ".txt"
	}
}

func newBatchBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple workbooks/CSVs with progress, one report per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := utils.ExpandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c := currentConfig()
		opt, err := abFlags.options(cmd, c)
		if err != nil {
			return err
		}
		plan := abFlags.plan(cmd, c)
		format := abFlags.outputFormat(cmd, c)
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}

		barOut := cmd.ErrOrStderr()
		if abQuiet {
			barOut = io.Discard
		}
		bar := newBatchBar(len(files), barOut)

		var failed []string
		written := map[string]int{}
		for _, path := range files {
			bar.Describe(filepath.Base(path))
			out, _, err := analyzeFile(path, opt, plan, format)
			_ = bar.Add(1)
			if err != nil {
				log.Warnw("batch item failed", "path", path, "error", err)
				failed = append(failed, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			if abOutDir == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n%s\n", path, strings.TrimRight(string(out), "\n"))
				continue
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			// same basename from different directories gets a numeric suffix
			written[base]++
			if n := written[base]; n > 1 {
				base = fmt.Sprintf("%s__%d", base, n)
			}
			dest := filepath.Join(abOutDir, base+reportExt(format))
			if err := utils.SafeWriteFile(dest, out); err != nil {
				failed = append(failed, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			if !abQuiet {
				successf(cmd.ErrOrStderr(), "Wrote %s", dest)
			}
		}
		_ = bar.Finish()

		for _, f := range failed {
			fmt.Fprintln(cmd.ErrOrStderr(), "✗", f)
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d file(s) failed", len(failed), len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per input into this directory instead of stdout")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
