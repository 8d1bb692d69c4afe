package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/infra/acn"
	"github.com/mdubois44/chargeplan/infra/cache"
	"github.com/mdubois44/chargeplan/infra/logger"
	"github.com/mdubois44/chargeplan/infra/scenariofile"
	"github.com/mdubois44/chargeplan/infra/synthetic"
)

// scenarioTTL bounds how long a fetched ACN scenario stays valid in the cache.
const scenarioTTL = 24 * time.Hour

// Fetched carries a scenario together with acquisition details.
type Fetched struct {
	Scenario *model.Scenario
	CacheHit bool
}

// Source yields the scenario to optimize.
type Source interface {
	// Kind tags fetch events with the origin of the scenario.
	Kind() string
	Scenario(ctx context.Context) (Fetched, error)
}

// SyntheticSource generates a reproducible scenario from configuration.
type SyntheticSource struct {
	cfg synthetic.Config
}

// NewSyntheticSource creates a source backed by the synthetic generator.
func NewSyntheticSource(cfg synthetic.Config) *SyntheticSource {
	return &SyntheticSource{cfg: cfg}
}

func (s *SyntheticSource) Kind() string { return "synthetic" }

func (s *SyntheticSource) Scenario(context.Context) (Fetched, error) {
	sc, err := synthetic.Generate(s.cfg)
	if err != nil {
		return Fetched{}, err
	}
	return Fetched{Scenario: sc}, nil
}

// FileSource loads a scenario definition from a YAML or JSON file.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading the given scenario file.
func NewFileSource(path string) *FileSource { return &FileSource{path: path} }

func (s *FileSource) Kind() string { return "file" }

func (s *FileSource) Scenario(context.Context) (Fetched, error) {
	sc, err := scenariofile.Load(s.path)
	if err != nil {
		return Fetched{}, err
	}
	return Fetched{Scenario: sc}, nil
}

// sessionFetcher is the part of the ACN client the source uses.
type sessionFetcher interface {
	FetchSessions(ctx context.Context, day time.Time, site string, limit int) ([]model.ChargingSession, error)
	BuildScenario(sessions []model.ChargingSession, siteMaxPowerKW float64, horizon int) (*model.Scenario, error)
}

// ACNSource fetches real charging sessions and turns them into a scenario.
// Built scenarios are cached per site, day and session cap, so repeated runs
// against the same query skip the API.
type ACNSource struct {
	fetch     sessionFetcher
	cache     *cache.FileCache
	site      string
	day       time.Time
	limit     int
	siteMaxKW float64
	horizon   int
	log       logger.Logger
}

// NewACNSource creates a source for the client's configured site and day. A
// nil cache disables caching.
func NewACNSource(client *acn.Client, c *cache.FileCache, siteMaxPowerKW float64, horizon int) (*ACNSource, error) {
	day, err := time.Parse("2006-01-02", client.Date())
	if err != nil {
		return nil, fmt.Errorf("parse acn date: %w", err)
	}
	return &ACNSource{
		fetch:     client,
		cache:     c,
		site:      client.Site(),
		day:       day,
		limit:     client.Limit(),
		siteMaxKW: siteMaxPowerKW,
		horizon:   horizon,
		log:       logger.New("acn-source"),
	}, nil
}

func (s *ACNSource) Kind() string { return "acn" }

func (s *ACNSource) cacheKey() string {
	limit := "all"
	if s.limit > 0 {
		limit = strconv.Itoa(s.limit)
	}
	return fmt.Sprintf("scenario_%s_%s_%s", s.site, s.day.Format("2006-01-02"), limit)
}

// Scenario returns the cached scenario when present, otherwise fetches the
// day's sessions and builds one.
func (s *ACNSource) Scenario(ctx context.Context) (Fetched, error) {
	key := s.cacheKey()
	if s.cache != nil {
		var sc model.Scenario
		hit, err := s.cache.Get(key, &sc)
		if err != nil {
			s.log.Warnf("cache read %s: %v", key, err)
		} else if hit {
			s.log.Infof("scenario %s served from cache", sc.Name)
			return Fetched{Scenario: &sc, CacheHit: true}, nil
		}
	}

	sessions, err := s.fetch.FetchSessions(ctx, s.day, s.site, s.limit)
	if err != nil {
		return Fetched{}, fmt.Errorf("fetch sessions: %w", err)
	}
	sc, err := s.fetch.BuildScenario(sessions, s.siteMaxKW, s.horizon)
	if err != nil {
		return Fetched{}, fmt.Errorf("build scenario: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetTTL(key, sc, scenarioTTL); err != nil {
			s.log.Warnf("cache write %s: %v", key, err)
		}
	}
	return Fetched{Scenario: sc}, nil
}
