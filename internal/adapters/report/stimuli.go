// Package report reads stimulus tables and writes results tables in the CSV
// layout used by the clock test scripts.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/clockread/internal/domain/model"
)

// StimuliHeader is the header row of a stimulus table.
var StimuliHeader = []string{"Hour", "Minute", "Correct answer", "Stimuli time from start (s)"}

const stimulusColumns = 4

// LoadStimuli reads the stimulus table at path.
func LoadStimuli(path string) ([]model.StimulusEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stimulus table: %w", err)
	}
	defer f.Close()
	return ReadStimuli(f)
}

// ReadStimuli parses a stimulus table. The first row is a header; blank
// rows are skipped. Stimuli must be listed in presentation order.
func ReadStimuli(r io.Reader) ([]model.StimulusEvent, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedStimuli, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedStimuli)
	}

	var out []model.StimulusEvent
	var errs []error
	for line, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s, err := parseStimulus(row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", line+2, err))
			continue
		}
		s.Index = len(out)
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedStimuli, errors.Join(errs...))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no stimuli", ErrMalformedStimuli)
	}
	return out, nil
}

func parseStimulus(row []string) (model.StimulusEvent, error) {
	if len(row) < stimulusColumns {
		return model.StimulusEvent{}, fmt.Errorf("expected %d columns, got %d", stimulusColumns, len(row))
	}
	hour, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return model.StimulusEvent{}, fmt.Errorf("hour: %w", err)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil {
		return model.StimulusEvent{}, fmt.Errorf("minute: %w", err)
	}
	answer, err := model.ParseAnswer(row[2])
	if err != nil {
		return model.StimulusEvent{}, err
	}
	onset, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return model.StimulusEvent{}, fmt.Errorf("onset: %w", err)
	}
	return model.StimulusEvent{Hour: hour, Minute: minute, Expected: answer, OnsetSec: onset}, nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteStimuli writes a stimulus table.
func WriteStimuli(w io.Writer, stimuli []model.StimulusEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StimuliHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range stimuli {
		row := []string{strconv.Itoa(s.Hour), strconv.Itoa(s.Minute), s.Expected.String(), pyFloat(s.OnsetSec)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write stimulus %d: %w", s.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
