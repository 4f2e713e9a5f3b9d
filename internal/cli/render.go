package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

const barWidth = 20

// ConfidenceBar draws score as a bar scaled against max.
func ConfidenceBar(score, maxScore float64) string {
	filled := 0
	if maxScore > 0 && score > 0 {
		filled = int(score / maxScore * barWidth)
		if filled < 1 {
			filled = 1
		}
		if filled > barWidth {
			filled = barWidth
		}
	}
	return BarStyle.Render(strings.Repeat("█", filled)) + SubtleStyle.Render(strings.Repeat("░", barWidth-filled))
}

// RenderRecommendation formats a recommendation for the terminal.
func RenderRecommendation(q model.Query, rec *model.Recommendation) string {
	title := fmt.Sprintf("%s %s · %02d:00 · %d", PeopleIcon, q.Place, q.Hour, q.Amount)

	if rec.IsEmpty() {
		return RenderBox(title, FormatWarning(rec.Explanation))
	}

	var b strings.Builder
	scores := rec.Scores()
	maxScore := 0.0
	nameWidth := 0
	for _, s := range scores {
		maxScore = max(maxScore, s.Score)
		nameWidth = max(nameWidth, lipgloss.Width(s.Participant))
	}

	for i, s := range scores {
		pad := strings.Repeat(" ", nameWidth-lipgloss.Width(s.Participant))
		fmt.Fprintf(&b, "%d. %s%s  %s %.3f\n", i+1, BoldStyle.Render(s.Participant), pad, ConfidenceBar(s.Score, maxScore), s.Score)
	}

	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render("Similar settlements:"))
	b.WriteString("\n")
	for _, st := range rec.SimilarTransactions {
		fmt.Fprintf(&b, "  %s  %s  %d  %s  %s\n",
			st.DateTime,
			st.Place,
			st.Amount,
			strings.Join(st.Participants, ", "),
			SubtleStyle.Render(fmt.Sprintf("sim %.3f · d² %.3f", st.Similarity, st.Distance)))
	}

	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(rec.Explanation))

	return RenderBox(title, b.String())
}

// RenderTransactions formats stored settlements as a table.
func RenderTransactions(txns []model.Transaction) string {
	if len(txns) == 0 {
		return FormatInfo("No settlements recorded yet.")
	}

	rows := make([][]string, 0, len(txns)+1)
	rows = append(rows, []string{"DATETIME", "PLACE", "AMOUNT", "PARTICIPANTS"})
	for _, t := range txns {
		rows = append(rows, []string{
			t.DateTime.Format(model.DateTimeLayout),
			t.Place,
			fmt.Sprintf("%d", t.Amount),
			strings.Join(t.Participants, ", "),
		})
	}
	return renderTable(rows)
}

// RenderRuns formats stored recommendation runs as a table.
func RenderRuns(runs []model.RecommendationRun) string {
	if len(runs) == 0 {
		return FormatInfo("No recommendations recorded yet.")
	}

	rows := make([][]string, 0, len(runs)+1)
	rows = append(rows, []string{"ID", "WHEN", "SCENARIO", "RECOMMENDED"})
	for _, r := range runs {
		var recommended string
		if r.Recommendation != nil {
			recommended = strings.Join(r.Recommendation.RecommendedParticipants, ", ")
		}
		rows = append(rows, []string{
			r.ID[:min(8, len(r.ID))],
			r.CreatedAt.Local().Format(model.DateTimeLayout),
			r.Key,
			recommended,
		})
	}
	return renderTable(rows)
}

func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if r == 0 {
			line = BoldStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
