package history

import (
	"context"
	"sync"
	"time"

	"github.com/sensaur/sensaur-hub/internal/hub"
)

// recordTimeout bounds each insert so a locked database cannot stall the
// hub's receiver, which dispatches readings synchronously.
const recordTimeout = 2 * time.Second

// pruneInterval is how often old readings are aged out.
const pruneInterval = 1 * time.Hour

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Recorder is a hub.Handler that persists every accepted reading and
// periodically prunes old ones.
type Recorder struct {
	repo      *Repository
	logger    Logger
	retention time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRecorder creates a recorder over the repository.
//
// Parameters:
//   - repo: The readings repository
//   - retention: How long readings are kept; zero disables pruning
//   - logger: Logger for insert/prune failures
func NewRecorder(repo *Repository, retention time.Duration, logger Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		logger:    logger,
		retention: retention,
		done:      make(chan struct{}),
	}
}

// HandleReading implements hub.Handler by inserting the reading.
// Failures are logged and swallowed: history must never break dispatch.
func (rec *Recorder) HandleReading(c *hub.Component, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := rec.repo.Record(ctx, Reading{
		DeviceID:  c.Device.ID,
		Component: c.Name,
		Type:      c.Type,
		Units:     c.Units,
		Value:     value,
	})
	if err != nil {
		rec.logger.Warn("recording reading failed",
			"component", c.Name, "error", err)
	}
}

// Start launches the background prune loop. No-op if retention is zero.
func (rec *Recorder) Start(ctx context.Context) {
	if rec.retention <= 0 {
		return
	}
	rec.wg.Add(1)
	go rec.pruneLoop(ctx)
}

// Stop shuts the prune loop down. Safe to call multiple times.
func (rec *Recorder) Stop() {
	rec.stopOnce.Do(func() {
		close(rec.done)
		rec.wg.Wait()
	})
}

// pruneLoop ages out readings past the retention window.
func (rec *Recorder) pruneLoop(ctx context.Context) {
	defer rec.wg.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rec.done:
			return
		case <-ticker.C:
			deleted, err := rec.repo.Prune(ctx, rec.retention)
			if err != nil {
				rec.logger.Warn("pruning readings failed", "error", err)
				continue
			}
			if deleted > 0 {
				rec.logger.Info("pruned readings", "deleted", deleted)
			}
		}
	}
}
