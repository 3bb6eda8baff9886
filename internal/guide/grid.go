// Package guide turns a flat mirakc program list into a per-day, per-channel
// schedule grid with no gaps or overlaps, ready for a timeline layout.
package guide

import (
	"cmp"
	"slices"
	"time"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// Slot is one entry of a channel's timeline. A slot without a Program is a
// filler covering time with no listed broadcast.
//
// Duration is the slot's length on the timeline and may be shorter than
// Program.Duration, which is kept as reported by mirakc.
type Slot struct {
	StartAt  int64           `json:"start_at"`
	Duration int64           `json:"duration"`
	Program  *mirakc.Program `json:"program,omitempty"`
}

// IsFiller reports whether the slot was synthesized to cover unlisted time.
func (s Slot) IsFiller() bool {
	return s.Program == nil
}

// EndAt returns the epoch-millisecond end of the slot.
func (s Slot) EndAt() int64 {
	return s.StartAt + s.Duration
}

// Start returns the slot start time.
func (s Slot) Start() time.Time {
	return time.UnixMilli(s.StartAt)
}

// End returns the slot end time.
func (s Slot) End() time.Time {
	return time.UnixMilli(s.EndAt())
}

// ChannelID is the (network, service) pair identifying a channel. A service id
// on its own is only unique within its network.
type ChannelID struct {
	NetworkID int `json:"network_id"`
	ServiceID int `json:"service_id"`
}

func compareChannelID(a, b ChannelID) int {
	if c := cmp.Compare(a.NetworkID, b.NetworkID); c != 0 {
		return c
	}
	return cmp.Compare(a.ServiceID, b.ServiceID)
}

// NetworkSchedule maps service id to that channel's ordered slots.
type NetworkSchedule map[int][]Slot

// DaySchedule maps network id to the schedules of its services for one day.
type DaySchedule map[int]NetworkSchedule

// Grid maps broadcast days to their schedules. A day, network or service is
// present only when at least one program landed in it.
type Grid map[broadcastday.Key]DaySchedule

// Days returns the broadcast days present in the grid, ascending.
func (g Grid) Days() []broadcastday.Key {
	days := make([]broadcastday.Key, 0, len(g))
	for k := range g {
		days = append(days, k)
	}
	slices.Sort(days)
	return days
}

// Day returns the schedule of one broadcast day.
func (g Grid) Day(key broadcastday.Key) (DaySchedule, bool) {
	d, ok := g[key]
	return d, ok
}

// Channel returns the slots of one channel on one day, or nil.
func (g Grid) Channel(key broadcastday.Key, networkID, serviceID int) []Slot {
	return g[key].Channel(networkID, serviceID)
}

// Channels returns the channels with a schedule on this day ordered by
// network id then service id.
func (d DaySchedule) Channels() []ChannelID {
	var ids []ChannelID
	for nid, services := range d {
		for sid := range services {
			ids = append(ids, ChannelID{NetworkID: nid, ServiceID: sid})
		}
	}
	slices.SortFunc(ids, compareChannelID)
	return ids
}

// Channel returns the slots of one channel, or nil.
func (d DaySchedule) Channel(networkID, serviceID int) []Slot {
	return d[networkID][serviceID]
}

// Has reports whether the channel has any slots on this day.
func (d DaySchedule) Has(networkID, serviceID int) bool {
	return len(d[networkID][serviceID]) > 0
}

// add appends a slot to the channel bucket, creating intermediate maps lazily.
func (g Grid) add(key broadcastday.Key, networkID, serviceID int, s Slot) {
	day, ok := g[key]
	if !ok {
		day = make(DaySchedule)
		g[key] = day
	}
	network, ok := day[networkID]
	if !ok {
		network = make(NetworkSchedule)
		day[networkID] = network
	}
	network[serviceID] = append(network[serviceID], s)
}
