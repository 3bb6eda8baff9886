// Package service provides the business logic layer for miraview.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/internal/guide"
	"github.com/jmylchreest/miraview/internal/metrics"
	"github.com/jmylchreest/miraview/internal/models"
	"github.com/jmylchreest/miraview/internal/observability"
	"github.com/jmylchreest/miraview/internal/repository"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// Errors returned by GuideService lookups.
var (
	ErrDayNotFound     = errors.New("broadcast day not found")
	ErrProgramNotFound = errors.New("program not found")
)

// DefaultSnapshotRetain is how many snapshots of each kind are kept.
const DefaultSnapshotRetain = 3

// Source is the tuner backend the guide is fetched from.
type Source interface {
	Programs(ctx context.Context) ([]mirakc.Program, error)
	Services(ctx context.Context) ([]mirakc.Service, error)
	Tuners(ctx context.Context) ([]mirakc.Tuner, error)
	Version(ctx context.Context) (*mirakc.Version, error)
	StreamURL(service *mirakc.Service, protocol string) string
}

// ChannelView is one channel's slots on a broadcast day. Service is nil when
// the services list has not been loaded.
type ChannelView struct {
	NetworkID int             `json:"network_id"`
	ServiceID int             `json:"service_id"`
	Service   *mirakc.Service `json:"service,omitempty"`
	Slots     []guide.Slot    `json:"slots"`
}

// DayView is the guide for one broadcast day.
type DayView struct {
	Key      broadcastday.Key `json:"key"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Channels []ChannelView    `json:"channels"`
}

// ProgramPair is a program together with the service it airs on.
type ProgramPair struct {
	Program   mirakc.Program  `json:"program"`
	Service   *mirakc.Service `json:"service,omitempty"`
	StreamURL string          `json:"stream_url,omitempty"`
}

// Status describes the state of the held guide data.
type Status struct {
	LoadedFrom      string    `json:"loaded_from,omitempty"` // mirakc or snapshot
	LastRefresh     time.Time `json:"last_refresh,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
	ProgramCount    int       `json:"program_count"`
	ServiceCount    int       `json:"service_count"`
	MirakcVersion   string    `json:"mirakc_version,omitempty"`
	LatestVersion   string    `json:"latest_version,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

// TunerStatus is the live tuner list together with the server version.
// Version is the last known one when it could not be fetched.
type TunerStatus struct {
	Tuners  []mirakc.Tuner  `json:"tuners"`
	Version *mirakc.Version `json:"version,omitempty"`
}

// GuideService holds the latest program and service lists and builds the
// guide grid from them on demand.
type GuideService struct {
	source         Source
	sourceURI      string
	streamProtocol string
	snapshots      repository.SnapshotRepository
	retain         int
	logger         *slog.Logger
	now            func() time.Time

	refreshMu sync.Mutex

	mu          sync.RWMutex
	programs    []mirakc.Program
	services    []mirakc.Service
	loadedFrom  string
	lastRefresh time.Time
	lastErr     error
	version     *mirakc.Version
}

// NewGuideService creates a guide service fetching from source. sourceURI is
// recorded on snapshots; streamProtocol is the scheme used for stream links.
func NewGuideService(source Source, sourceURI, streamProtocol string) *GuideService {
	return &GuideService{
		source:         source,
		sourceURI:      sourceURI,
		streamProtocol: streamProtocol,
		retain:         DefaultSnapshotRetain,
		logger:         slog.Default(),
		now:            time.Now,
	}
}

// WithLogger sets the logger for the service.
func (s *GuideService) WithLogger(logger *slog.Logger) *GuideService {
	s.logger = observability.WithComponent(logger, "guide")
	return s
}

// WithSnapshots enables persisting fetched lists, keeping retain of each kind.
func (s *GuideService) WithSnapshots(repo repository.SnapshotRepository, retain int) *GuideService {
	s.snapshots = repo
	s.retain = max(retain, 1)
	return s
}

// WithClock replaces the wall clock used for the current time.
func (s *GuideService) WithClock(now func() time.Time) *GuideService {
	s.now = now
	return s
}

// Refresh fetches programs and services concurrently and replaces the held
// lists. On failure the previous lists are kept and the error is returned.
// Concurrent calls are serialized.
func (s *GuideService) Refresh(ctx context.Context) (err error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	done := observability.TimedOperationWithError(ctx, s.logger, "refresh", &err)
	defer done()

	var (
		programs []mirakc.Program
		services []mirakc.Service
		version  *mirakc.Version
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var ferr error
		programs, ferr = s.source.Programs(gctx)
		metrics.ObserveFetch("programs", time.Since(start), ferr)
		return ferr
	})
	g.Go(func() error {
		start := time.Now()
		var ferr error
		services, ferr = s.source.Services(gctx)
		metrics.ObserveFetch("services", time.Since(start), ferr)
		return ferr
	})
	g.Go(func() error {
		version = s.fetchVersion(gctx)
		return nil
	})

	if err = g.Wait(); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("refreshing guide: %w", err)
	}

	fetchedAt := s.now()
	s.replace(programs, services, "mirakc", fetchedAt)
	if version != nil {
		s.setVersion(version)
	}
	metrics.LastRefresh.Set(float64(fetchedAt.Unix()))

	s.logger.InfoContext(ctx, "guide refreshed",
		slog.Int("programs", len(programs)),
		slog.Int("services", len(services)),
	)

	s.persist(ctx, programs, services, fetchedAt)
	return nil
}

// LoadSnapshot restores the most recent stored lists. It reports whether any
// list was restored; a missing snapshot is not an error.
func (s *GuideService) LoadSnapshot(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}

	programSnap, err := s.snapshots.Latest(ctx, models.SnapshotPrograms)
	if err != nil {
		return false, err
	}
	serviceSnap, err := s.snapshots.Latest(ctx, models.SnapshotServices)
	if err != nil {
		return false, err
	}
	if programSnap == nil && serviceSnap == nil {
		return false, nil
	}

	var (
		programs  []mirakc.Program
		services  []mirakc.Service
		fetchedAt time.Time
	)
	if programSnap != nil {
		if programs, err = models.DecodeSnapshot[mirakc.Program](programSnap); err != nil {
			return false, err
		}
		fetchedAt = programSnap.FetchedAt
	}
	if serviceSnap != nil {
		if services, err = models.DecodeSnapshot[mirakc.Service](serviceSnap); err != nil {
			return false, err
		}
	}

	s.replace(programs, services, "snapshot", fetchedAt)
	s.logger.InfoContext(ctx, "guide restored from snapshot",
		slog.Int("programs", len(programs)),
		slog.Int("services", len(services)),
		slog.Time("fetched_at", fetchedAt),
	)
	return true, nil
}

func (s *GuideService) replace(programs []mirakc.Program, services []mirakc.Service, from string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = programs
	s.services = services
	s.loadedFrom = from
	s.lastRefresh = at
	s.lastErr = nil

	metrics.GuidePrograms.Set(float64(len(programs)))
	metrics.GuideServices.Set(float64(len(services)))
}

// fetchVersion returns the server version, or nil when it cannot be fetched.
// The version is informational and never fails a refresh.
func (s *GuideService) fetchVersion(ctx context.Context) *mirakc.Version {
	start := time.Now()
	v, err := s.source.Version(ctx)
	metrics.ObserveFetch("version", time.Since(start), err)
	if err != nil {
		s.logger.DebugContext(ctx, "fetching mirakc version failed", slog.String("error", err.Error()))
		return nil
	}
	return v
}

func (s *GuideService) setVersion(v *mirakc.Version) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

// Tuners fetches the current tuner states and the server version. Tuner
// state changes by the second, so it is never cached.
func (s *GuideService) Tuners(ctx context.Context) (*TunerStatus, error) {
	var (
		tuners  []mirakc.Tuner
		version *mirakc.Version
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var ferr error
		tuners, ferr = s.source.Tuners(gctx)
		metrics.ObserveFetch("tuners", time.Since(start), ferr)
		return ferr
	})
	g.Go(func() error {
		version = s.fetchVersion(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching tuner status: %w", err)
	}
	if tuners == nil {
		tuners = []mirakc.Tuner{}
	}

	if version != nil {
		s.setVersion(version)
	} else {
		s.mu.RLock()
		version = s.version
		s.mu.RUnlock()
	}
	return &TunerStatus{Tuners: tuners, Version: version}, nil
}

// persist stores the fetched lists. Failures are logged; the in-memory guide
// is already up to date.
func (s *GuideService) persist(ctx context.Context, programs []mirakc.Program, services []mirakc.Service, fetchedAt time.Time) {
	if s.snapshots == nil {
		return
	}

	store := func(snap *models.Snapshot, err error) {
		if err == nil {
			err = s.snapshots.Create(ctx, snap)
		}
		if err == nil {
			_, err = s.snapshots.Prune(ctx, snap.Kind, s.retain)
		}
		if err != nil {
			observability.WithError(s.logger, err).WarnContext(ctx, "storing guide snapshot failed")
		}
	}

	store(models.NewSnapshot(models.SnapshotPrograms, s.sourceURI, fetchedAt, programs))
	store(models.NewSnapshot(models.SnapshotServices, s.sourceURI, fetchedAt, services))
}

// lists returns the held lists. Callers must not modify them; Refresh swaps
// in new slices rather than mutating.
func (s *GuideService) lists() ([]mirakc.Program, []mirakc.Service) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.programs, s.services
}

// Now returns the service's current time.
func (s *GuideService) Now() time.Time {
	return s.now()
}

// Grid builds the schedule grid over the held programs as of now.
func (s *GuideService) Grid(now time.Time) guide.Grid {
	programs, _ := s.lists()

	start := time.Now()
	grid := guide.Build(programs, now)
	metrics.GridBuildDuration.Observe(time.Since(start).Seconds())
	return grid
}

// Days returns the broadcast days with at least one program, ascending.
func (s *GuideService) Days(now time.Time) []broadcastday.Key {
	return s.Grid(now).Days()
}

// Day returns the channels and slots of one broadcast day.
//
// Channels follow the order of the services list and only services with at
// least one slot that day are included. Before any services are known, all
// channels of the day are listed by network then service id.
func (s *GuideService) Day(key broadcastday.Key, now time.Time) (*DayView, error) {
	day, ok := s.Grid(now).Day(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDayNotFound, key)
	}
	_, services := s.lists()

	view := &DayView{Key: key, Start: key.Start(), End: key.End()}

	if len(services) == 0 {
		for _, id := range day.Channels() {
			view.Channels = append(view.Channels, ChannelView{
				NetworkID: id.NetworkID,
				ServiceID: id.ServiceID,
				Slots:     day.Channel(id.NetworkID, id.ServiceID),
			})
		}
		return view, nil
	}

	view.Channels = make([]ChannelView, 0, len(services))
	for i := range services {
		svc := &services[i]
		if !day.Has(svc.NetworkID, svc.ServiceID) {
			continue
		}
		view.Channels = append(view.Channels, ChannelView{
			NetworkID: svc.NetworkID,
			ServiceID: svc.ServiceID,
			Service:   svc,
			Slots:     day.Channel(svc.NetworkID, svc.ServiceID),
		})
	}
	return view, nil
}

// Program returns the program with mirakc id, its service and stream URL.
func (s *GuideService) Program(id int64) (*ProgramPair, error) {
	programs, services := s.lists()

	for i := range programs {
		if programs[i].ID != id {
			continue
		}
		pair := &ProgramPair{Program: programs[i]}
		for j := range services {
			if services[j].NetworkID == pair.Program.NetworkID && services[j].ServiceID == pair.Program.ServiceID {
				pair.Service = &services[j]
				pair.StreamURL = s.source.StreamURL(pair.Service, s.streamProtocol)
				break
			}
		}
		return pair, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrProgramNotFound, id)
}

// Status returns the state of the held guide data.
func (s *GuideService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		LoadedFrom:   s.loadedFrom,
		LastRefresh:  s.lastRefresh,
		ProgramCount: len(s.programs),
		ServiceCount: len(s.services),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.version != nil {
		st.MirakcVersion = s.version.Current
		st.LatestVersion = s.version.Latest
		st.UpdateAvailable = s.version.UpdateAvailable()
	}
	return st
}
