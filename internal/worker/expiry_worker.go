package worker

import (
	"context"
	"time"

	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/service"
	"github.com/rs/zerolog"
)

const expiryBatchLimit = 100

// ExpiryWorker sweeps sessions whose deadline passed without any client
// contact. Expiry is already enforced lazily on every validate/heartbeat, so
// the sweep only matters for abandoned attempts and for dashboard freshness;
// a missed tick costs nothing but staleness.
type ExpiryWorker struct {
	sessions  service.SessionStore
	finalizer service.Finalizer
	interval  time.Duration
	log       zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(sessions service.SessionStore, finalizer service.Finalizer, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessions:  sessions,
		finalizer: finalizer,
		interval:  interval,
		log:       log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	expired, err := w.sessions.ListExpired(ctx, time.Now(), expiryBatchLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("List expired sessions failed")
		return
	}

	for i := range expired {
		sess := &expired[i]
		// Finalize re-checks state under the session lock, so racing a
		// concurrent manual submit is safe.
		if _, err := w.finalizer.Finalize(ctx, sess.ID, model.SubmissionTypeAutoTimeout, "system"); err != nil {
			w.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Expire session failed")
		}
	}
	if len(expired) > 0 {
		w.log.Info().Int("count", len(expired)).Msg("Expired overdue sessions")
	}
}
