package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akeildev/basicsHalo/internal/config"
)

const maxFillerGrace = 2 * time.Second

// fillerTask speaks rotating progress phrases while a tool call runs. It is
// cancelled through a signal channel observed at every wait, and Stop gives
// it one bounded grace interval to finish its current utterance.
type fillerTask struct {
	stop     chan struct{}
	done     chan struct{}
	grace    time.Duration
	stopOnce sync.Once
}

// startFiller launches the filler goroutine. A disabled filler returns an
// already-finished task so Stop stays a no-op.
func startFiller(ctx context.Context, cfg config.FillerConfig, speech Speech) *fillerTask {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Duration(config.DefaultConfig().Policy.Filler.IntervalMS) * time.Millisecond
	}
	grace := interval
	if grace > maxFillerGrace {
		grace = maxFillerGrace
	}

	f := &fillerTask{
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		grace: grace,
	}

	if !cfg.Enabled {
		close(f.done)
		return f
	}

	go f.run(ctx, cfg, speech, interval)
	return f
}

func (f *fillerTask) run(ctx context.Context, cfg config.FillerConfig, speech Speech, interval time.Duration) {
	defer close(f.done)

	firstDelay := time.Duration(cfg.FirstAfterMS) * time.Millisecond
	if firstDelay <= 0 {
		firstDelay = time.Duration(config.DefaultConfig().Policy.Filler.FirstAfterMS) * time.Millisecond
	}

	phrases := cfg.Phrases
	if len(phrases) == 0 {
		phrases = config.DefaultConfig().Policy.Filler.Phrases
	}

	select {
	case <-f.stop:
		return
	case <-ctx.Done():
		return
	case <-time.After(firstDelay):
	}

	index := 0
	for {
		phrase := phrases[len(phrases)-1]
		if index < len(phrases) {
			phrase = phrases[index]
			index++
		}

		if err := speech.Say(ctx, phrase); err != nil {
			log.Debug().Err(err).Msg("Filler speech failed")
		}

		select {
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Stop signals the task and waits up to one grace interval for it to finish
// its current utterance. Safe to call more than once.
func (f *fillerTask) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})

	select {
	case <-f.done:
	case <-time.After(f.grace):
		log.Debug().Msg("Filler task did not stop within grace period")
	}
}
