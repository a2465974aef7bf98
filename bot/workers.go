package bot

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	sweepInterval     = time.Minute
	stateSaveInterval = 5 * time.Minute
	payrollReason     = "Weekly payroll"
)

// worker is a function run on a fixed interval until stopped
type worker struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

// startWorkers launches every worker and returns a function that stops them
// and waits for in-flight runs to finish
func startWorkers(ctx context.Context, workers []worker) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	for _, w := range workers {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()

			log.WithFields(log.Fields{"worker": w.name, "interval": w.interval}).Info("Worker started")
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					w.run(ctx)
				}
			}
		}(w)
	}

	return func() {
		cancel()
		wg.Wait()
	}
}

// workers lists the background jobs this bot runs
func (b *Bot) workers() []worker {
	workers := []worker{
		{
			name:     "expiry-sweeper",
			interval: sweepInterval,
			run: func(ctx context.Context) {
				if removed := b.ledger.Sweep(); removed > 0 {
					log.WithField("removed", removed).Debug("Swept expired corrective actions")
				}
				b.gamble.Sweep()
			},
		},
	}

	if b.config.StateFile != "" {
		workers = append(workers, worker{
			name:     "state-snapshot",
			interval: stateSaveInterval,
			run: func(ctx context.Context) {
				if err := b.store.Save(b.config.StateFile); err != nil {
					log.WithError(err).Error("Failed to save state snapshot")
				}
			},
		})
	}

	if b.config.PayrollAmount > 0 {
		workers = append(workers, worker{
			name:     "payroll",
			interval: b.config.PayrollInterval,
			run: func(ctx context.Context) {
				summary, err := b.services.Payroll.PayActiveMembers(ctx, b.config.PayrollAmount, payrollReason)
				if err != nil {
					log.WithError(err).Error("Payroll run failed")
					return
				}
				log.WithFields(log.Fields{
					"paid":      summary.Paid,
					"failed":    summary.Failed,
					"totalPaid": summary.TotalPaid,
				}).Info("Payroll run finished")
			},
		})
	}

	return workers
}
