package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QuoteSourceTag is recorded in the ledger's Source column for generated quotes.
const QuoteSourceTag = "Ollama LLM"

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("bot is already running")

// Source yields a batch of candidate quotes.
type Source interface {
	Batch(ctx context.Context, n int) []string
}

// VideoRenderer renders one quote into a video artifact.
type VideoRenderer interface {
	Render(quote string) (string, error)
}

// Poster publishes a rendered video. A nil Poster disables posting; quotes
// are still rendered and recorded with Posted=false.
type Poster interface {
	Publish(ctx context.Context, videoPath, caption string) error
}

// Runner is the long-lived control loop: pull candidates, dedup against the
// ledger, render, publish, record, pause. At most one loop runs per Runner;
// Start and Stop are safe to call from concurrent web handlers.
type Runner struct {
	source   Source
	renderer VideoRenderer
	poster   Poster
	ledger   *Ledger
	log      *slog.Logger

	// OnRendered, when set, is called after a ledger row is appended for a
	// freshly rendered artifact. The web layer uses it to keep the gallery
	// metadata store in step with the loop.
	OnRendered func(videoPath, quote string, posted bool)

	BatchSize  int
	PostPause  time.Duration // after a successful publish
	BatchPause time.Duration // after exhausting a batch
	ErrorPause time.Duration // after a failed cycle

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner wires a Runner with the default production pacing.
func NewRunner(source Source, renderer VideoRenderer, poster Poster, ledger *Ledger, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		source:     source,
		renderer:   renderer,
		poster:     poster,
		ledger:     ledger,
		log:        log,
		BatchSize:  5,
		PostPause:  time.Hour,
		BatchPause: 6 * time.Hour,
		ErrorPause: time.Hour,
	}
}

// Start launches the loop on a new goroutine. The compare-and-swap makes
// concurrent Start calls race-free: exactly one wins, the rest get
// ErrAlreadyRunning.
func (r *Runner) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer func() {
			r.running.Store(false)
			close(done)
		}()
		r.run(ctx)
	}()
	return nil
}

// Stop requests cancellation. The loop observes it within about a second
// even inside its multi-hour pauses. Stop returns immediately; use Wait to
// block until the loop has exited.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current loop, if any, has exited.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// run executes cycles until cancelled. A cycle error is logged and followed
// by a fixed interruptible backoff, then the loop continues; only
// cancellation ends it.
func (r *Runner) run(ctx context.Context) {
	r.log.Info("bot loop started", "batch_size", r.BatchSize)
	for {
		err := r.cycle(ctx)
		if ctx.Err() != nil {
			r.log.Info("bot loop stopped")
			return
		}
		if err != nil {
			r.log.Error("cycle failed", "error", err)
			if sleep(ctx, r.ErrorPause) != nil {
				r.log.Info("bot loop stopped")
				return
			}
			continue
		}
		if sleep(ctx, r.BatchPause) != nil {
			r.log.Info("bot loop stopped")
			return
		}
	}
}

// cycle processes one batch of candidates in order. A quote whose exact
// text already appears in the ledger is skipped outright, whatever its
// posted flag. A render failure skips the quote without recording it.
// Every rendered quote gets exactly one ledger row.
func (r *Runner) cycle(ctx context.Context) error {
	quotes := r.source.Batch(ctx, r.BatchSize)
	for _, quote := range quotes {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		seen, err := r.ledger.Exists(quote)
		if err != nil {
			return fmt.Errorf("ledger lookup: %w", err)
		}
		if seen {
			r.log.Info("skipping known quote", "quote", quote)
			continue
		}

		videoPath, err := r.renderer.Render(quote)
		if err != nil {
			r.log.Error("render failed, skipping quote", "quote", quote, "error", err)
			continue
		}

		posted := false
		if r.poster != nil {
			if err := r.poster.Publish(ctx, videoPath, Caption(quote)); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn("publish failed", "video", videoPath, "error", err)
			} else {
				posted = true
			}
		}

		if err := r.ledger.Append(Record{Quote: quote, Source: QuoteSourceTag, Posted: posted}); err != nil {
			return fmt.Errorf("ledger append: %w", err)
		}
		if r.OnRendered != nil {
			r.OnRendered(videoPath, quote, posted)
		}

		if posted {
			if err := sleep(ctx, r.PostPause); err != nil {
				return err
			}
		}
	}
	return nil
}

// Caption builds the posting caption for a quote.
func Caption(quote string) string {
	return fmt.Sprintf("💪 %s\n\n#motivation #inspiration #success #mindset", quote)
}
