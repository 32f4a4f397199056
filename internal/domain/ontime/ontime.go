// Package ontime labels records whose reaction fell inside the allotted window.
package ontime

import (
	"math"

	"github.com/okian/clockread/internal/domain/model"
)

// Label sets OnTime: a reaction exists and is no longer than allottedSec.
func Label(m model.Match, allottedSec float64) model.Match {
	m.OnTime = !math.IsNaN(m.ReactionSec) && m.ReactionSec <= allottedSec
	return m
}

// LabelAll labels every record in place.
func LabelAll(records []model.Match, allottedSec float64) {
	for i := range records {
		records[i] = Label(records[i], allottedSec)
	}
}
