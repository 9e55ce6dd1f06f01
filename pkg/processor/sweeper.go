package processor

import (
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const DefaultSweepSchedule = "@every 1m"

// Sweeper periodically drops expired entries from a MappingCache.
type Sweeper struct {
	cron   *cron.Cron
	cache  *MappingCache
	logger ectologger.Logger
}

// NewSweeper schedules cache sweeps on a standard cron spec or a descriptor
// such as "@every 1m".
func NewSweeper(cache *MappingCache, schedule string, logger ectologger.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &Sweeper{
		cron:   cron.New(),
		cache:  cache,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, errors.Wrapf(err, "invalid cache sweep schedule '%s'", schedule)
	}

	return s, nil
}

func (s *Sweeper) Sweep() {
	removed := s.cache.Sweep()
	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("Swept expired mappings from cache")
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
