package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/defensys/internal/model"
)

var titleCaser = cases.Title(language.English)

// titleCase turns "CONFIRMED" or "network" into "Confirmed" or "Network".
func titleCase(s string) string {
	return titleCaser.String(strings.ToLower(s))
}

// formatProbability renders p as a percentage with one decimal.
func formatProbability(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}

// verdictText renders a verdict as "phishing (87.0%)" or "benign (12.0%)".
func verdictText(v model.Verdict) string {
	label := "benign"
	if v.IsPhishing {
		label = "phishing"
	}
	return fmt.Sprintf("%s (%s)", label, formatProbability(v.Confidence))
}

// reputationText summarizes a reputation lookup in a few words.
func reputationText(r model.ReputationSummary) string {
	switch {
	case !r.Checked:
		return "not checked"
	case r.Error != "":
		return "unavailable"
	case !r.InDatabase:
		return "unknown"
	case r.IsPhishing && r.Verified:
		return "verified phish"
	case r.IsPhishing:
		return "listed phish"
	case r.Verified:
		return "verified clean"
	default:
		return "listed clean"
	}
}

// formatTime renders t, or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
