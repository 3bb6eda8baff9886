package guide

import (
	"cmp"
	"slices"
	"time"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// Build groups programs into a Grid relative to now.
//
// Programs starting before the current broadcast day's threshold and programs
// missing a name, network id or service id are skipped. Each channel's list is
// then sorted and normalized so that it starts at or before its day start and
// every slot ends exactly where the next begins. Overlong durations are cut at
// the next program's start and gaps get filler slots. Nothing is added after
// the last program of a day.
//
// Build never fails and never modifies programs; the grid holds copies.
func Build(programs []mirakc.Program, now time.Time) Grid {
	grid := make(Grid)
	if len(programs) == 0 {
		return grid
	}

	threshold := broadcastday.Threshold(now).UnixMilli()

	for i := range programs {
		p := programs[i]
		if p.StartAt < threshold || !p.Identified() {
			continue
		}
		grid.add(broadcastday.KeyOfMillis(p.StartAt), p.NetworkID, p.ServiceID, Slot{
			StartAt:  p.StartAt,
			Duration: max(p.Duration, 0),
			Program:  &p,
		})
	}

	for key, day := range grid {
		dayStart := key.Start().UnixMilli()
		for _, network := range day {
			for sid, slots := range network {
				network[sid] = normalize(slots, dayStart)
			}
		}
	}

	return grid
}

// normalize sorts one channel's slots and rebuilds them into a contiguous run
// beginning no later than dayStart.
func normalize(slots []Slot, dayStart int64) []Slot {
	slices.SortStableFunc(slots, func(a, b Slot) int {
		return cmp.Compare(a.StartAt, b.StartAt)
	})

	out := make([]Slot, 0, len(slots)*2+1)
	if first := slots[0].StartAt; first > dayStart {
		out = append(out, filler(dayStart, first))
	}

	for i, cur := range slots {
		if i == len(slots)-1 {
			out = append(out, cur)
			break
		}

		next := slots[i+1].StartAt
		if cur.EndAt() > next {
			cur.Duration = max(next-cur.StartAt, 0)
		}
		out = append(out, cur)

		if end := cur.EndAt(); end < next {
			out = append(out, filler(end, next))
		}
	}

	return out
}

func filler(from, to int64) Slot {
	return Slot{StartAt: from, Duration: to - from}
}
