package credkit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// Refreshable is a source that can be forced to fetch a new token.
type Refreshable interface {
	Refresh(ctx context.Context) (tokenkit.Record, error)
	CacheKey() string
}

// Refresher refreshes sources on cron schedules so that the tokens they
// share through a cache are replaced before callers see them expire.
type Refresher struct {
	cron    *cron.Cron
	logger  logrus.FieldLogger
	timeout time.Duration
}

// NewRefresher creates a stopped refresher. timeout bounds each refresh; zero
// means 30s.
func NewRefresher(logger logrus.FieldLogger, timeout time.Duration) *Refresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Refresher{cron: cron.New(), logger: logger, timeout: timeout}
}

// Add schedules src with a standard 5-field cron spec or a descriptor such
// as "@every 45m".
func (r *Refresher) Add(spec string, src Refreshable) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { r.run(src) })
}

// Remove unschedules an entry.
func (r *Refresher) Remove(id cron.EntryID) { r.cron.Remove(id) }

func (r *Refresher) run(src Refreshable) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	log := r.logger.WithField("cache_key", src.CacheKey())
	rec, err := src.Refresh(ctx)
	if err != nil {
		log.WithError(err).Warn("scheduled token refresh failed")
		return
	}
	log.WithField("expires_at", rec.Expiry()).Debug("token refreshed")
}

func (r *Refresher) Start() { r.cron.Start() }

// Stop halts scheduling and returns a context done once running refreshes
// finish.
func (r *Refresher) Stop() context.Context { return r.cron.Stop() }
