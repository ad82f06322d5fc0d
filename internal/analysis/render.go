package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/fatigue-cli/internal/stats"
	"github.com/KaramelBytes/fatigue-cli/internal/utils"
)

// Output formats accepted by Render.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Render encodes the report in the named format.
func Render(r *Report, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return []byte(r.Text()), nil
	case FormatMarkdown, "md":
		return []byte(r.Markdown()), nil
	case FormatJSON:
		return utils.PrettyJSON(r)
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, markdown or json)", format)
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func testLine(res stats.TestResult) string {
	s := fmt.Sprintf("%s: statistic=%s, p=%s, n=%d", res.Test, num(res.Statistic), stats.FormatP(res.PValue), res.N)
	if res.NoDifference {
		s += " (no difference)"
	}
	return s
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(b)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.AppendBulk(rows)
	tw.Render()
}

func (r *Report) descriptiveRows() [][]string {
	var rows [][]string
	for _, c := range r.Descriptives {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.N), strconv.Itoa(c.Missing),
			num(c.Mean), num(c.Median), num(c.Std), num(c.Min), num(c.Max)})
	}
	return rows
}

func (r *Report) coefficientRows() [][]string {
	var rows [][]string
	for _, c := range r.Regression.Coefficients {
		rows = append(rows, []string{c.Name, num(c.Estimate), num(c.StdErr), num(c.T),
			stats.FormatP(c.PValue), num(c.CILow), num(c.CIHigh)})
	}
	return rows
}

func vifName(v stats.VIFRow) string {
	if v.Intercept {
		return v.Name + " (intercept)"
	}
	return v.Name
}

func selectedList(s *stats.Selection) string {
	if len(s.Selected) == 0 {
		return "(none)"
	}
	return strings.Join(s.Selected, ", ")
}

func candidateNote(c stats.CandidateP) string {
	if c.Err != "" {
		return "skipped: " + c.Err
	}
	if c.PerfectFit {
		return stats.FormatP(c.PValue) + " (perfect fit)"
	}
	return stats.FormatP(c.PValue)
}

var coefHeader = []string{"", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]"}

// Text renders the report for a terminal with aligned tables.
func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fatigue analysis: %s", r.Name)
	if r.Sheet != "" {
		fmt.Fprintf(&b, " [%s]", r.Sheet)
	}
	fmt.Fprintf(&b, "\nRows: %d  Alpha: %g  Run: %s\n\n", r.Rows, r.Alpha, r.RunID)

	b.WriteString("Descriptive statistics\n")
	writeTable(&b, []string{"column", "n", "missing", "mean", "median", "std", "min", "max"}, r.descriptiveRows())

	if pc := r.Primary; pc != nil {
		fmt.Fprintf(&b, "\n%s pre vs post\n", pairLabel(pc.Pair))
		fmt.Fprintf(&b, "  Shapiro-Wilk %s: W=%s, p=%s, n=%d\n", pc.Pair.Pre, num(pc.ShapiroPre.W), stats.FormatP(pc.ShapiroPre.PValue), pc.ShapiroPre.N)
		fmt.Fprintf(&b, "  Shapiro-Wilk %s: W=%s, p=%s, n=%d\n", pc.Pair.Post, num(pc.ShapiroPost.W), stats.FormatP(pc.ShapiroPost.PValue), pc.ShapiroPost.N)
		fmt.Fprintf(&b, "  %s\n", testLine(pc.Result))
	}
	for _, ft := range r.Fixed {
		fmt.Fprintf(&b, "\n%s pre vs post\n  %s\n", pairLabel(ft.Pair), testLine(ft.Result))
	}

	if len(r.Correlations) > 0 {
		b.WriteString("\nCorrelations\n")
		for _, c := range r.Correlations {
			fmt.Fprintf(&b, "  r(%s, %s) = %.3f  (n=%d)\n", c.Reference, c.Other, c.R, c.N)
		}
	}

	if m := r.Regression; m != nil {
		fmt.Fprintf(&b, "\nOLS regression: %s\n", m.Response)
		fmt.Fprintf(&b, "  No. Observations: %d   Df Residuals: %.0f   Df Model: %.0f\n", m.N, m.DFResid, m.DFModel)
		fmt.Fprintf(&b, "  R-squared: %.3f   Adj. R-squared: %.3f\n", m.RSquared, m.AdjRSquared)
		fmt.Fprintf(&b, "  F-statistic: %.4g   Prob (F-statistic): %s\n", m.FStat, stats.FormatP(m.FPValue))
		fmt.Fprintf(&b, "  Log-Likelihood: %.3f   AIC: %.4g   BIC: %.4g\n", m.LogLikelihood, m.AIC, m.BIC)
		writeTable(&b, coefHeader, r.coefficientRows())
		if m.Omnibus != nil {
			fmt.Fprintf(&b, "  Omnibus: %.3f   Prob(Omnibus): %.3f\n", m.Omnibus.Statistic, m.Omnibus.PValue)
		}
		fmt.Fprintf(&b, "  Skew: %.3f   Kurtosis: %.3f\n", m.Skew, m.Kurtosis)
		fmt.Fprintf(&b, "  Jarque-Bera (JB): %.3f   Prob(JB): %s\n", m.JarqueBera, stats.FormatP(m.JBPValue))
		fmt.Fprintf(&b, "  Durbin-Watson: %.3f   Cond. No.: %.3g\n", m.DurbinWatson, m.CondNo)
	}

	if len(r.VIF) > 0 {
		b.WriteString("\nVariance inflation factors\n")
		var rows [][]string
		for _, v := range r.VIF {
			rows = append(rows, []string{vifName(v), num(v.VIF)})
		}
		writeTable(&b, []string{"variable", "VIF"}, rows)
	}

	if s := r.Selection; s != nil {
		fmt.Fprintf(&b, "\nForward selection (entry p < %g)\n", s.Threshold)
		for _, rd := range s.Rounds {
			fmt.Fprintf(&b, "  round %d:", rd.Round)
			for _, c := range rd.Candidates {
				fmt.Fprintf(&b, " %s=%s", c.Name, candidateNote(c))
			}
			if rd.Admitted {
				fmt.Fprintf(&b, " -> added %s\n", rd.Best)
			} else {
				b.WriteString(" -> stop\n")
			}
		}
		fmt.Fprintf(&b, "  Selected features: %s\n", selectedList(s))
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func mdRow(cells ...string) string {
	for i, c := range cells {
		cells[i] = strings.ReplaceAll(c, "|", "\\|")
	}
	return "| " + strings.Join(cells, " | ") + " |\n"
}

func mdTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString(mdRow(append([]string(nil), header...)...))
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString(mdRow(row...))
	}
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	fmt.Fprintf(&b, "File: %s\n", r.Name)
	if r.Sheet != "" {
		fmt.Fprintf(&b, "Sheet: %s\n", r.Sheet)
	}
	fmt.Fprintf(&b, "Rows: %d\nAlpha: %g\nRun: %s\n\n", r.Rows, r.Alpha, r.RunID)

	b.WriteString("[DESCRIPTIVES]\n")
	mdTable(&b, []string{"column", "n", "missing", "mean", "median", "std", "min", "max"}, r.descriptiveRows())
	b.WriteString("\n")

	b.WriteString("[PAIRED TESTS]\n")
	if pc := r.Primary; pc != nil {
		fmt.Fprintf(&b, "- %s normality: %s p=%s (n=%d), %s p=%s (n=%d)\n", pairLabel(pc.Pair),
			pc.Pair.Pre, stats.FormatP(pc.ShapiroPre.PValue), pc.ShapiroPre.N,
			pc.Pair.Post, stats.FormatP(pc.ShapiroPost.PValue), pc.ShapiroPost.N)
		fmt.Fprintf(&b, "- %s: %s\n", pairLabel(pc.Pair), testLine(pc.Result))
	}
	for _, ft := range r.Fixed {
		fmt.Fprintf(&b, "- %s: %s\n", pairLabel(ft.Pair), testLine(ft.Result))
	}
	b.WriteString("\n")

	if len(r.Correlations) > 0 {
		b.WriteString("[CORRELATIONS]\n")
		for _, c := range r.Correlations {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f (n=%d)\n", c.Reference, c.Other, c.R, c.N)
		}
		b.WriteString("\n")
	}

	if m := r.Regression; m != nil {
		fmt.Fprintf(&b, "[REGRESSION] %s\n", m.Response)
		fmt.Fprintf(&b, "- n=%d, df_resid=%.0f, df_model=%.0f\n", m.N, m.DFResid, m.DFModel)
		fmt.Fprintf(&b, "- R²=%.3f, adj. R²=%.3f, F=%.4g (p=%s)\n", m.RSquared, m.AdjRSquared, m.FStat, stats.FormatP(m.FPValue))
		fmt.Fprintf(&b, "- log-likelihood=%.3f, AIC=%.4g, BIC=%.4g\n\n", m.LogLikelihood, m.AIC, m.BIC)
		mdTable(&b, coefHeader, r.coefficientRows())
		b.WriteString("\n")
		if m.Omnibus != nil {
			fmt.Fprintf(&b, "- omnibus=%.3f (p=%.3f)\n", m.Omnibus.Statistic, m.Omnibus.PValue)
		}
		fmt.Fprintf(&b, "- skew=%.3f, kurtosis=%.3f, JB=%.3f (p=%s)\n", m.Skew, m.Kurtosis, m.JarqueBera, stats.FormatP(m.JBPValue))
		fmt.Fprintf(&b, "- Durbin-Watson=%.3f, cond. no.=%.3g\n\n", m.DurbinWatson, m.CondNo)
	}

	if len(r.VIF) > 0 {
		b.WriteString("[VIF]\n")
		for _, v := range r.VIF {
			fmt.Fprintf(&b, "- %s: %s\n", vifName(v), num(v.VIF))
		}
		b.WriteString("\n")
	}

	if s := r.Selection; s != nil {
		b.WriteString("[FORWARD SELECTION]\n")
		for _, rd := range s.Rounds {
			var parts []string
			for _, c := range rd.Candidates {
				parts = append(parts, fmt.Sprintf("%s=%s", c.Name, candidateNote(c)))
			}
			verdict := "stop"
			if rd.Admitted {
				verdict = "added " + rd.Best
			}
			fmt.Fprintf(&b, "- round %d: %s -> %s\n", rd.Round, strings.Join(parts, ", "), verdict)
		}
		fmt.Fprintf(&b, "Selected features: %s\n", selectedList(s))
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
