// Package display renders run reports and playbook checkpoints for the
// terminal.
package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
)

// Shared color styles for all CLI output.
var (
	Title = color.New(color.Bold, color.FgBlue)
	Label = color.New(color.FgCyan)
	Good  = color.New(color.FgGreen)
	Bad   = color.New(color.FgRed)
	Warn  = color.New(color.FgYellow)
	Dim   = color.New(color.FgHiBlack)
)

// FormatReport renders a finished run: the headline numbers, one line per
// query, and the playbook's score bands.
func FormatReport(r *ace.RunReport) string {
	var out strings.Builder

	out.WriteString(Title.Sprint("Run Complete") + "\n")
	out.WriteString(strings.Repeat("=", 40) + "\n\n")

	acc := accuracyColor(r.Accuracy())
	out.WriteString(fmt.Sprintf("%s %s\n", Label.Sprint("Accuracy:"),
		acc.Sprintf("%.1f%% (%d/%d)", r.Accuracy()*100, r.Correct, r.Total)))
	out.WriteString(fmt.Sprintf("%s %d bullets\n", Label.Sprint("Playbook:"), r.FinalSize))
	out.WriteString(fmt.Sprintf("%s %v\n", Label.Sprint("Duration:"), r.Duration.Round(time.Millisecond)))

	if len(r.Results) > 0 {
		out.WriteString("\n")
		for _, res := range r.Results {
			out.WriteString(formatResult(res))
		}
	}

	if line := formatBands(r.ScoreBands); line != "" {
		out.WriteString("\n" + Label.Sprint("Score bands:") + " " + line + "\n")
	}

	return out.String()
}

func formatResult(res ace.QueryResult) string {
	mark := Good.Sprint("PASS")
	if !res.Correct {
		mark = Bad.Sprint("FAIL")
	}

	id := res.Query.ID
	if id == "" {
		id = "-"
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("  %s %-14s %2d steps %9v", mark, id, res.Steps,
		res.Duration.Round(time.Millisecond)))
	if len(res.UsedIDs) > 0 {
		cited := make([]string, len(res.UsedIDs))
		for i, u := range res.UsedIDs {
			cited[i] = u.String()
		}
		out.WriteString(Dim.Sprintf("  cited %s", strings.Join(cited, ",")))
	}
	out.WriteString("\n")

	for _, f := range res.Failures {
		out.WriteString(Bad.Sprintf("       %s", f) + "\n")
	}
	return out.String()
}

// formatBands lists the non-empty bands in a fixed order so the line is
// stable across runs.
func formatBands(bands map[string]int) string {
	var parts []string
	for _, name := range []string{"established", "emerging", "neutral", "negative"} {
		if n := bands[name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
		}
	}
	return strings.Join(parts, ", ")
}

func accuracyColor(accuracy float64) *color.Color {
	switch {
	case accuracy >= 0.8:
		return Good
	case accuracy >= 0.5:
		return Warn
	default:
		return Bad
	}
}

// FormatPlaybook renders a checkpoint's bullets best first. A positive top
// limits the listing to the top N bullets.
func FormatPlaybook(s *ace.Snapshot, top int) string {
	bullets := append([]ace.Bullet(nil), s.Bullets...)
	sort.SliceStable(bullets, func(i, j int) bool {
		if bullets[i].Score() != bullets[j].Score() {
			return bullets[i].Score() > bullets[j].Score()
		}
		return bullets[i].ID < bullets[j].ID
	})
	if top > 0 && top < len(bullets) {
		bullets = bullets[:top]
	}

	var out strings.Builder
	out.WriteString(Title.Sprintf("Playbook: %d/%d bullets, epoch %d",
		len(s.Bullets), s.MaxSize, s.CurrentEpoch) + "\n")
	out.WriteString(strings.Repeat("=", 50) + "\n\n")

	if len(bullets) == 0 {
		out.WriteString(Dim.Sprint("no bullets yet") + "\n")
		return out.String()
	}

	for _, b := range bullets {
		score := Good
		switch {
		case b.Score() < 0:
			score = Bad
		case b.Score() == 0:
			score = Warn
		}
		out.WriteString(fmt.Sprintf("%s %s %s\n",
			Label.Sprintf("[%s]", b.ID),
			score.Sprintf("%+d (helpful %d, harmful %d)", b.Score(), b.Helpful, b.Harmful),
			b.Content))
		if len(b.Tags) > 0 {
			out.WriteString(Dim.Sprintf("       tags: %s", strings.Join(b.Tags, ", ")) + "\n")
		}
	}
	return out.String()
}
