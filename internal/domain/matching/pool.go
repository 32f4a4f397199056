package matching

import (
	"sort"

	"github.com/okian/clockread/internal/domain/model"
)

// pool tracks which response events can still be matched. Consumed and
// excluded events are skipped in amortized constant time through a
// path-compressed "next available" table.
type pool struct {
	events []model.ResponseEvent
	next   []int // next[i] == i iff events[i] is available; next[len] == len
	top    int   // highest position that may still be available, -1 when empty
}

func newPool(events []model.ResponseEvent, excluded map[int]struct{}) *pool {
	p := &pool{
		events: events,
		next:   make([]int, len(events)+1),
		top:    len(events) - 1,
	}
	for i := range p.next {
		p.next[i] = i
	}
	for i, ev := range events {
		if _, ok := excluded[ev.Index]; ok {
			p.next[i] = i + 1
		}
	}
	return p
}

func (p *pool) available(i int) bool {
	return p.next[i] == i
}

// find returns the first available position >= i, or len(events).
func (p *pool) find(i int) int {
	for p.next[i] != i {
		p.next[i] = p.next[p.next[i]]
		i = p.next[i]
	}
	return i
}

// firstAfter returns the first available position whose onset is strictly
// later than t.
func (p *pool) firstAfter(t float64) int {
	start := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].OnsetSec > t
	})
	return p.find(start)
}

// after returns the next available position following pos.
func (p *pool) after(pos int) int {
	return p.find(pos + 1)
}

func (p *pool) consume(pos int) {
	p.next[pos] = pos + 1
}

// lastOnset returns the onset of the latest available event.
func (p *pool) lastOnset() (float64, bool) {
	for p.top >= 0 && !p.available(p.top) {
		p.top--
	}
	if p.top < 0 {
		return 0, false
	}
	return p.events[p.top].OnsetSec, true
}

func (p *pool) done(pos int) bool {
	return pos >= len(p.events)
}
