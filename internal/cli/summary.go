package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/okian/clockread/internal/domain/model"
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true).Foreground(primaryColor)
	trueStyle   = cellStyle.Foreground(goodColor)
	falseStyle  = cellStyle.Foreground(badColor)
	naStyle     = cellStyle.Foreground(mutedColor)
)

// Column of the accuracy value in the records table.
const accuracyColumn = 5

// RecordsTable renders one row per stimulus.
func RecordsTable(records []model.Match) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		clip, reaction := "-", "-"
		if idx, ok := r.ResponseIndex(); ok {
			clip = strconv.Itoa(idx)
		}
		if r.HasReaction() {
			reaction = strconv.FormatFloat(r.ReactionSec, 'f', 3, 64)
		}
		transcript := r.Transcript
		if transcript == "" {
			transcript = model.AccuracyNA.String()
		}
		onTime := "no"
		if r.OnTime {
			onTime = "yes"
		}
		rows[i] = []string{
			fmt.Sprintf("%d:%02d", r.Stimulus.Hour, r.Stimulus.Minute),
			r.Stimulus.Expected.String(),
			strconv.FormatFloat(r.Stimulus.OnsetSec, 'f', 2, 64),
			clip,
			transcript,
			r.Accuracy.String(),
			reaction,
			onTime,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers("Clock", "Expected", "Onset (s)", "Clip", "Heard", "Accuracy", "Reaction (s)", "On time").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != accuracyColumn || row < 0 || row >= len(records) {
				return cellStyle
			}
			switch records[row].Accuracy {
			case model.AccuracyTrue:
				return trueStyle
			case model.AccuracyFalse:
				return falseStyle
			default:
				return naStyle
			}
		})
	return t.Render()
}

// PrintSummary prints the records table and the session totals.
func PrintSummary(w io.Writer, sess model.Session, resultsPath string) { //nolint:gocritic // hugeParam: sessions are values
	sum := model.Summarize(sess.Records)

	fmt.Fprintln(w, TitleStyle.Render("Session "+sess.ID))
	fmt.Fprintln(w, RecordsTable(sess.Records))
	fmt.Fprintln(w)

	mean := "n/a"
	if !math.IsNaN(sum.MeanReactionSec) {
		mean = strconv.FormatFloat(sum.MeanReactionSec, 'f', 3, 64) + " s"
	}
	pairs := [][2]string{
		{"Responses detected:", strconv.Itoa(len(sess.Responses))},
		{"Stimuli matched:", fmt.Sprintf("%d / %d", sum.Matched, sum.Stimuli)},
		{"Correct:", strconv.Itoa(sum.Correct)},
		{"Incorrect:", strconv.Itoa(sum.Incorrect)},
		{"Unintelligible:", strconv.Itoa(sum.Unintelligible)},
		{"On time:", strconv.Itoa(sum.OnTime)},
		{"Mean reaction:", mean},
	}
	if sum.EchoRejected > 0 {
		pairs = append(pairs, [2]string{"Echoes skipped:", strconv.Itoa(sum.EchoRejected)})
	}
	if resultsPath != "" {
		pairs = append(pairs, [2]string{"Results:", resultsPath})
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%-19s", p[0])), ValueStyle.Render(p[1]))
	}
}
