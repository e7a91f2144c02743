package sqlanywhere

import (
	"strings"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

// demuxState is a step of result-stream demultiplexing.
type demuxState int

const (
	statePrologue         demuxState = iota // leading sets of statements without a projection
	statePerParameterSkip                   // sets reported for each emulated SET
	stateMainResult                         // caller-visible sets
	stateTrailer                            // one folded set per emulated parameter
	stateDone
)

func (s demuxState) String() string {
	switch s {
	case statePrologue:
		return "prologue"
	case statePerParameterSkip:
		return "per-parameter-skip"
	case stateMainResult:
		return "main-result"
	case stateTrailer:
		return "trailer"
	default:
		return "done"
	}
}

// demuxer separates caller data from emulated parameter values. Every count
// it uses is fixed when the call is built.
type demuxer struct {
	// skip is the number of sets the prologue's SET statements produce.
	skip int
	// trailer names the emulated parameters in epilogue order.
	trailer []string
}

// run walks sets, the complete result stream in arrival order, through
// Prologue → PerParameterSkip → MainResult → Trailer.
func (d demuxer) run(sets []database.ResultSet) (*schema.RoutineResult, error) {
	res := &schema.RoutineResult{}
	if len(d.trailer) > 0 {
		res.Out = make(map[string]any, len(d.trailer))
	}

	// Index of the first trailer set among projected sets.
	projected := 0
	for _, s := range sets {
		if len(s.Columns) > 0 {
			projected++
		}
	}

	var (
		state   = statePrologue
		i       int
		skipped int
		seen    int // projected sets consumed so far
		trailer int // trailer sets consumed so far
	)
	for state != stateDone {
		switch state {
		case statePrologue:
			if i < len(sets) && len(sets[i].Columns) == 0 {
				i++
				continue
			}
			state = statePerParameterSkip

		case statePerParameterSkip:
			if skipped < d.skip && i < len(sets) {
				if len(sets[i].Columns) > 0 {
					seen++
				}
				skipped++
				i++
				continue
			}
			state = stateMainResult

		case stateMainResult:
			if i >= len(sets) || projected-seen <= len(d.trailer) {
				state = stateTrailer
				continue
			}
			if len(sets[i].Columns) > 0 {
				res.Sets = append(res.Sets, sets[i])
				seen++
			}
			i++

		case stateTrailer:
			if trailer == len(d.trailer) {
				state = stateDone
				continue
			}
			if i >= len(sets) {
				return nil, errs.Newf(errs.ErrKindQueryFailed,
					"missing result for output parameter %q", d.trailer[trailer])
			}
			if len(sets[i].Columns) == 0 {
				i++
				continue
			}
			want := d.trailer[trailer]
			name, value, ok := sets[i].Scalar()
			if !ok || !strings.EqualFold(strings.TrimPrefix(name, "@"), want) {
				return nil, errs.Newf(errs.ErrKindQueryFailed,
					"missing result for output parameter %q", want)
			}
			res.Out[want] = value
			trailer++
			i++
		}
	}
	return res, nil
}
