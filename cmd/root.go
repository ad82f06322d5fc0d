package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/fatigue-cli/internal/config"
	"github.com/KaramelBytes/fatigue-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop().Sugar()
)

var rootCmd = &cobra.Command{
	Use:   "fatigue",
	Short: "Fatigue study analysis: paired tests, correlations, OLS, VIF and forward selection",
	Long: `fatigue loads a study workbook (PVT, KSS, SP and flight hours per subject) and runs a fixed
statistical pipeline: a normality-gated pre/post comparison, paired t-tests, Pearson correlations,
an OLS regression with diagnostics, variance inflation factors and forward feature selection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.fatigue/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		warnf(os.Stderr, "failed to load config: %v", err)
		c = cfgpkg.Defaults()
	}
	cfg = c
	l, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		warnf(os.Stderr, "logger: %v", err)
		return
	}
	log = l
}

// currentConfig returns the loaded config, loading it on demand when a command
// runs without cobra initialization (tests).
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

func successf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("⚠ Warning:"), fmt.Sprintf(format, args...))
}
