package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

type Renewer interface {
	RenewExpiring(ctx context.Context, now time.Time, within time.Duration) (int, error)
}

// WatchRenewalScheduler periodically renews mailbox watches before they lapse.
type WatchRenewalScheduler struct {
	renewer     Renewer
	interval    time.Duration
	renewBefore time.Duration
	now         func() time.Time
	stopChan    chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

func NewWatchRenewalScheduler(renewer Renewer, interval, renewBefore time.Duration) *WatchRenewalScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &WatchRenewalScheduler{
		renewer:     renewer,
		interval:    interval,
		renewBefore: renewBefore,
		now:         time.Now,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs one check immediately, then every interval, until Stop or ctx ends.
func (s *WatchRenewalScheduler) Start(ctx context.Context) {
	log.Printf("[WatchScheduler] Starting watch renewal scheduler (interval: %s)", s.interval)

	go func() {
		defer close(s.done)
		s.checkAndRenew(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndRenew(ctx)
			case <-ctx.Done():
				return
			case <-s.stopChan:
				log.Println("[WatchScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running check. Stop is idempotent.
func (s *WatchRenewalScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *WatchRenewalScheduler) checkAndRenew(ctx context.Context) {
	renewed, err := s.renewer.RenewExpiring(ctx, s.now(), s.renewBefore)
	if err != nil {
		log.Printf("[WatchScheduler] Error renewing watches: %v", err)
		return
	}
	if renewed > 0 {
		log.Printf("[WatchScheduler] Renewed %d watches", renewed)
	}
}
