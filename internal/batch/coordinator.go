package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPollInterval is how often the coordinator drains worker messages.
const DefaultPollInterval = 100 * time.Millisecond

// View receives batch lifecycle events on the coordinator goroutine.
type View interface {
	BatchStarted(b ImportBatch)
	Progress(b ImportBatch, p Progress)
	BatchDone(b ImportBatch, d Done)
	BatchFailed(b ImportBatch, f Failed, dropped int)
}

// Recorder persists one entry per terminal batch.
type Recorder interface {
	Record(r Result) error
}

// Result is the outcome of one batch.
type Result struct {
	Batch     ImportBatch
	Inserted  int
	Ignored   int
	Succeeded bool
	Err       string
}

// ErrAborted is returned by Run when a batch failed and the queue was dropped.
var ErrAborted = errors.New("import aborted")

// Coordinator pops batches off a session queue and runs them on a worker,
// one at a time.
type Coordinator struct {
	Worker   *Worker
	View     View
	Recorder Recorder // optional
	// Reconnect refreshes the coordinator's own view of the database after
	// a batch commits. Optional.
	Reconnect    func(ctx context.Context) error
	PollInterval time.Duration
	Logger       *log.Logger
}

// Run drains s.Queue. It stops at the first failed batch, clearing the
// remaining queue, and returns ErrAborted wrapped with the failure message.
func (c *Coordinator) Run(ctx context.Context, s *Session) ([]Result, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var results []Result
	for {
		b, ok := s.Queue.Pop()
		if !ok {
			return results, nil
		}
		c.View.BatchStarted(b)
		c.Logger.Debug("starting batch", "batch", b.ID, "account", b.Account.Name, "files", len(b.Files))

		ch, err := c.Worker.Start(ctx, b)
		if err != nil {
			return results, fmt.Errorf("starting batch %s: %w", b.ID, err)
		}

		res := c.await(ctx, ticker, b, ch, s)
		results = append(results, res)
		if c.Recorder != nil {
			if err := c.Recorder.Record(res); err != nil {
				c.Logger.Warn("could not record batch", "batch", b.ID, "error", err)
			}
		}
		if !res.Succeeded {
			return results, fmt.Errorf("%w: %s", ErrAborted, res.Err)
		}
	}
}

// await polls ch until the batch reaches a terminal message. Each tick
// drains everything the worker has sent so far without blocking.
func (c *Coordinator) await(ctx context.Context, ticker *time.Ticker, b ImportBatch, ch <-chan Message, s *Session) Result {
	for {
		<-ticker.C
	drain:
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return c.fail(b, Failed{Op: OpImport, Message: "worker exited without a result"}, s)
				}
				switch m := m.(type) {
				case Progress:
					c.View.Progress(b, m)
				case Done:
					if c.Reconnect != nil {
						if err := c.Reconnect(ctx); err != nil {
							c.Logger.Warn("could not refresh connection", "error", err)
						}
					}
					c.View.BatchDone(b, m)
					return Result{Batch: b, Inserted: m.Inserted, Ignored: m.Ignored, Succeeded: true}
				case Failed:
					return c.fail(b, m, s)
				}
			default:
				break drain
			}
		}
	}
}

func (c *Coordinator) fail(b ImportBatch, f Failed, s *Session) Result {
	dropped := s.Queue.Clear()
	c.View.BatchFailed(b, f, dropped)
	return Result{Batch: b, Err: f.Message}
}
