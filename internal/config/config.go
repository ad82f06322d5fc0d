package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Pair is a configured pre/post column pair.
type Pair struct {
	Label string `mapstructure:"label" yaml:"label"`
	Pre   string `mapstructure:"pre" yaml:"pre"`
	Post  string `mapstructure:"post" yaml:"post"`
}

// Study assigns dataset columns to analysis roles.
type Study struct {
	Primary       Pair     `mapstructure:"primary" yaml:"primary"`
	FixedPairs    []Pair   `mapstructure:"fixed_pairs" yaml:"fixed_pairs"`
	CorrReference string   `mapstructure:"corr_reference" yaml:"corr_reference"`
	CorrWith      []string `mapstructure:"corr_with" yaml:"corr_with"`
	Response      string   `mapstructure:"response" yaml:"response"`
	Predictors    []string `mapstructure:"predictors" yaml:"predictors"`
}

// Global configuration structure.
type Global struct {
	Alpha  float64 `mapstructure:"alpha" yaml:"alpha"`
	Format string  `mapstructure:"format" yaml:"format"`
	// Workbook/CSV loading
	SheetName          string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex         int    `mapstructure:"sheet_index" yaml:"sheet_index"`
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Study Study `mapstructure:"study" yaml:"study"`
}

// Formats lists the accepted values of the format key.
var Formats = []string{"text", "markdown", "json"}

// Dir returns ~/.fatigue.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".fatigue"), nil
}

// Path resolves the config file location: cfgFile if set, else ~/.fatigue/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.fatigue/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("alpha", 0.05)
	v.SetDefault("format", "text")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("log_level", "warn")

	v.SetDefault("study.primary.label", "PVT")
	v.SetDefault("study.primary.pre", "pvt_pre")
	v.SetDefault("study.primary.post", "pvt_post")
	v.SetDefault("study.fixed_pairs", []map[string]any{
		{"label": "KSS", "pre": "kss_pre", "post": "kss_post"},
		{"label": "SP", "pre": "sp_pre", "post": "sp_post"},
	})
	v.SetDefault("study.corr_reference", "pvt_post")
	v.SetDefault("study.corr_with", []string{"kss_post", "sp_post", "pvt_avr"})
	v.SetDefault("study.response", "pvt_post")
	v.SetDefault("study.predictors", []string{"pvt_pre", "pvt_avr", "kss_post", "sp_post", "flight_hours"})
}

// Defaults returns the built-in configuration without reading file or env.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FATIGUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		// a missing explicit file is allowed so `config set --config new.yaml` can create it
		if _, err := os.Stat(cfgFile); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges that would otherwise fail deep inside an analysis.
func (c *Global) Validate() error {
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return fmt.Errorf("invalid alpha %g: must be in (0, 1)", c.Alpha)
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("invalid format %q (use %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.SheetIndex < 0 {
		return fmt.Errorf("invalid sheet_index %d", c.SheetIndex)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("invalid max_rows %d", c.MaxRows)
	}
	for key, s := range map[string]string{"decimal_separator": c.DecimalSeparator, "thousands_separator": c.ThousandsSeparator} {
		if len([]rune(s)) > 1 {
			return fmt.Errorf("invalid %s %q: use a single character", key, s)
		}
	}
	return nil
}

func validFormat(f string) bool {
	for _, ok := range Formats {
		if f == ok {
			return true
		}
	}
	return false
}

// Keys lists the keys accepted by Set, sorted.
func Keys() []string {
	keys := []string{
		"alpha", "format", "sheet_name", "sheet_index", "max_rows", "decimal_separator",
		"thousands_separator", "log_level", "study.corr_reference", "study.corr_with",
		"study.response", "study.predictors",
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one key from its string form. List keys take comma-separated values.
func (c *Global) Set(key, val string) error {
	switch key {
	case "alpha":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f >= 1 {
			return fmt.Errorf("invalid float for alpha: %v (must be in (0, 1))", val)
		}
		c.Alpha = f
	case "format":
		if !validFormat(val) {
			return fmt.Errorf("invalid format: %s (use %s)", val, strings.Join(Formats, ", "))
		}
		c.Format = val
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for sheet_index: %v", val)
		}
		c.SheetIndex = i
	case "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_rows: %v", val)
		}
		c.MaxRows = i
	case "decimal_separator", "thousands_separator":
		if len([]rune(val)) > 1 {
			return fmt.Errorf("invalid %s: %q (use a single character)", key, val)
		}
		if key == "decimal_separator" {
			c.DecimalSeparator = val
		} else {
			c.ThousandsSeparator = val
		}
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "study.corr_reference":
		c.Study.CorrReference = val
	case "study.corr_with":
		c.Study.CorrWith = splitList(val)
	case "study.response":
		c.Study.Response = val
	case "study.predictors":
		p := splitList(val)
		if len(p) == 0 {
			return fmt.Errorf("study.predictors needs at least one column")
		}
		c.Study.Predictors = p
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
