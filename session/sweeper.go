package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// SweepStats reports one retention sweep.
type SweepStats struct {
	SessionsRemoved int      `json:"sessions_removed"`
	BytesFreed      int64    `json:"bytes_freed"`
	Errors          []string `json:"errors,omitempty"`
}

// Sweeper periodically removes sessions whose last activity is older than
// the TTL. It is an owned object with an explicit start/stop lifecycle and
// an on-demand trigger, not a process-wide singleton. A sweep may race an
// in-flight request on the session it deletes; the request then surfaces
// ErrNotFound, which is an accepted outcome (see Store docs).
type Sweeper struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex // serializes sweeps: the state machine is Idle -> Scanning -> Idle
	stop chan struct{}
	done chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(store *Store, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background timer. Safe to call once; use Stop to
// shut it down.
func (sw *Sweeper) Start() {
	sw.startOnce.Do(func() {
		go sw.loop()
	})
}

// Stop halts the timer and waits for an in-progress sweep to finish.
func (sw *Sweeper) Stop() {
	sw.stopOnce.Do(func() {
		close(sw.stop)
		<-sw.done
	})
}

func (sw *Sweeper) loop() {
	defer close(sw.done)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := sw.Run()
			sw.logger.Info("retention sweep finished",
				zap.Int("sessions_removed", stats.SessionsRemoved),
				zap.String("bytes_freed", humanize.Bytes(uint64(stats.BytesFreed))),
				zap.Int("errors", len(stats.Errors)),
			)
		case <-sw.stop:
			return
		}
	}
}

// Run performs one sweep immediately and returns its statistics. A single
// session's deletion failure is recorded and does not abort the rest of
// the scan; a session vanishing between enumeration and deletion is not
// an error.
func (sw *Sweeper) Run() SweepStats {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	var stats SweepStats
	cutoff := time.Now().Add(-sw.ttl)

	sessions, err := sw.store.List()
	if err != nil {
		stats.Errors = append(stats.Errors, err.Error())
		return stats
	}

	for _, info := range sessions {
		if !info.LastModified.Before(cutoff) {
			continue
		}
		if err := sw.store.Delete(info.ID); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("session %s: %v", info.ID, err))
			continue
		}
		stats.SessionsRemoved++
		stats.BytesFreed += info.Bytes
	}
	return stats
}
