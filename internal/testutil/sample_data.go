// Package testutil provides test utilities including sample guide generation.
package testutil

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// Standard fictional broadcasters for test data.
// NEVER use real station names.
var (
	Broadcasters = []string{
		"Aozora TV",
		"Minato Broadcasting",
		"Sakura Channel",
		"Tsubasa Network",
		"Kawasemi Vision",
		"Hikari Hoso",
	}

	// ProgramTitles are fictional program titles.
	ProgramTitles = []string{
		"Morning Report",
		"Midday Bulletin",
		"Evening Edition",
		"Weather Watch",
		"Quiz Masters",
		"Cooking Challenge",
		"City Hospital",
		"Crime Division",
		"Laugh Track",
		"Match Day",
		"Nature World",
		"Science Today",
		"Cartoon Time",
		"Live Sessions",
		"深夜アニメ劇場",
		"週末ドキュメント",
	}

	// ProgramMinutes contains common program lengths in minutes.
	ProgramMinutes = []int{5, 10, 15, 30, 54, 60, 90, 120}
)

// baseNetworkID is the first generated network id; terrestrial networks use
// the 0x7FE0 range.
const baseNetworkID = 32736

// SampleDataGenerator generates fictional mirakc data for testing. Program
// lists deliberately contain gaps, overlaps and unsorted entries.
type SampleDataGenerator struct {
	rng    *rand.Rand
	nextID int64
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return NewSampleDataGeneratorWithSeed(time.Now().UnixNano())
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // test data
		nextID: 1,
	}
}

// Services returns n services spread over up to three networks. Service ids
// repeat across networks.
func (g *SampleDataGenerator) Services(n int) []mirakc.Service {
	services := make([]mirakc.Service, 0, n)
	for i := range n {
		networkID := baseNetworkID + i%3
		serviceID := 1024 + 8*(i/3)
		services = append(services, mirakc.Service{
			ID:        int64(networkID)*100000 + int64(serviceID),
			NetworkID: networkID,
			ServiceID: serviceID,
			Type:      1,
			Name:      Broadcasters[i%len(Broadcasters)],
			Channel:   mirakc.Channel{Type: "GR", Channel: strconv.Itoa(20 + i%10)},
		})
	}
	return services
}

// Programs returns a lineup for each service covering [from, to). Programs
// are shuffled; roughly one in eight is followed by a gap and one in eight
// overruns into the next.
func (g *SampleDataGenerator) Programs(services []mirakc.Service, from, to time.Time) []mirakc.Program {
	var programs []mirakc.Program
	for _, svc := range services {
		at := from.Add(time.Duration(g.rng.Intn(60)) * time.Minute)
		for at.Before(to) {
			minutes := ProgramMinutes[g.rng.Intn(len(ProgramMinutes))]
			length := time.Duration(minutes) * time.Minute
			reported := length

			switch g.rng.Intn(8) {
			case 0:
				reported += time.Duration(1+g.rng.Intn(10)) * time.Minute
			case 1:
				length += time.Duration(1+g.rng.Intn(20)) * time.Minute
			}

			programs = append(programs, g.program(svc, at, reported))
			at = at.Add(length)
		}
	}

	g.rng.Shuffle(len(programs), func(i, j int) {
		programs[i], programs[j] = programs[j], programs[i]
	})
	return programs
}

func (g *SampleDataGenerator) program(svc mirakc.Service, start time.Time, d time.Duration) mirakc.Program {
	id := g.nextID
	g.nextID++
	return mirakc.Program{
		ID:                int64(svc.NetworkID)*1000000000 + id,
		EventID:           int(id),
		NetworkID:         svc.NetworkID,
		TransportStreamID: svc.TransportStreamID,
		ServiceID:         svc.ServiceID,
		StartAt:           start.UnixMilli(),
		Duration:          d.Milliseconds(),
		IsFree:            true,
		Name:              ProgramTitles[g.rng.Intn(len(ProgramTitles))],
	}
}
