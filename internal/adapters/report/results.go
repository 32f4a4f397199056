package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/clockread/internal/domain/model"
)

// ResultsHeader is the header row of a results table.
var ResultsHeader = []string{
	"Hour", "Minute", "Correct answer", "User Response",
	"Accuracy (T/F)", "Reaction time (s)", "Reaction on time (T/F)", "Clip Index",
	" ", " ", "Responses time from start",
}

// Sentinels of the results table.
const (
	noClip     = "-9999"
	notApplies = "-1"
	noReaction = "nan"
	spacer     = " "
)

// SaveResults writes a results table to path.
func SaveResults(path string, records []model.Match, responses []model.ResponseEvent) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close results file: %w", cerr)
		}
	}()
	return WriteResults(f, records, responses)
}

// WriteResults writes one row per stimulus or response, whichever is more.
// The last column lists response onsets by row, independent of matching,
// so the two timelines can be compared side by side.
func WriteResults(w io.Writer, records []model.Match, responses []model.ResponseEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rows := max(len(records), len(responses))
	for i := 0; i < rows; i++ {
		var row []string
		if i < len(records) {
			row = recordColumns(records[i])
		} else {
			row = []string{notApplies, notApplies, notApplies, notApplies, notApplies, notApplies, notApplies, notApplies}
		}
		row = append(row, spacer, spacer)
		if i < len(responses) {
			row = append(row, pyFloat(responses[i].OnsetSec))
		} else {
			row = append(row, notApplies)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func recordColumns(m model.Match) []string { //nolint:gocritic // hugeParam: records are values
	transcript := m.Transcript
	if transcript == "" {
		transcript = model.AccuracyNA.String()
	}
	reaction := noReaction
	if !math.IsNaN(m.ReactionSec) {
		reaction = pyFloat(m.ReactionSec)
	}
	clip := noClip
	if idx, ok := m.ResponseIndex(); ok {
		clip = strconv.Itoa(idx)
	}
	return []string{
		strconv.Itoa(m.Stimulus.Hour),
		strconv.Itoa(m.Stimulus.Minute),
		m.Stimulus.Expected.String(),
		transcript,
		m.Accuracy.String(),
		reaction,
		pyBool(m.OnTime),
		clip,
	}
}

// pyFloat formats like Python's float repr: shortest form, always with a
// decimal point.
func pyFloat(v float64) string {
	if math.IsNaN(v) {
		return noReaction
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
