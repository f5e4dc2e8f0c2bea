package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultMaxWait  = 30 * time.Minute

	// budgetStep is the wall time one attempt is assumed to cost, request
	// latency included. 30 minutes of budget buys 600 attempts.
	budgetStep = 3 * time.Second
)

type statusFetcher interface {
	TransactionStatus(ctx context.Context, reference, phone string) (domain.TransactionStatus, error)
}

type notifier interface {
	Send(ctx context.Context, to, body string)
}

type Job struct {
	Reference   string
	Phone       string
	BankName    string
	AccountName string
	InitiatedAt time.Time
	MaxWait     time.Duration
}

func (j Job) maxAttempts() int {
	wait := j.MaxWait
	if wait <= 0 {
		wait = DefaultMaxWait
	}
	n := int(wait / budgetStep)
	if n < 1 {
		n = 1
	}
	return n
}

type Poller struct {
	status   statusFetcher
	notify   notifier
	interval time.Duration
	logger   *slog.Logger
}

func NewPoller(status statusFetcher, notify notifier, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{status: status, notify: notify, interval: interval, logger: logger}
}

// Run polls until the transaction reaches a terminal status or the attempt
// budget runs out. It returns the number of polls made. Poll errors and
// non-terminal statuses never end the loop early. A timeout sends nothing
// to the user.
func (p *Poller) Run(ctx context.Context, job Job) (int, error) {
	log := p.logger.With("reference", job.Reference, "phone", logging.MaskPhone(job.Phone))
	ctx = logging.WithLogger(ctx, log)
	maxAttempts := job.maxAttempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("Run %s: %w", job.Reference, err)
		}

		st, err := p.status.TransactionStatus(ctx, job.Reference, job.Phone)
		switch {
		case err != nil:
			log.Debug("transaction status poll failed", "attempt", attempt, "error", err)
		case st.Outcome() == domain.OutcomeCompleted:
			p.notify.Send(ctx, job.Phone, completionMessage(job, st))
			log.Info("withdrawal completed", "attempts", attempt, "elapsed", elapsedText(job.InitiatedAt, st.LastUpdated))
			return attempt, nil
		case st.Outcome() == domain.OutcomeFailed:
			p.notify.Send(ctx, job.Phone, failureMessage(st))
			log.Warn("withdrawal failed", "attempts", attempt, "status", st.Status)
			return attempt, fmt.Errorf("Run %s: status %s: %w", job.Reference, st.Status, domain.ErrTransactionFailed)
		default:
			log.Debug("withdrawal still pending", "attempt", attempt, "status", st.Status)
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, fmt.Errorf("Run %s: %w", job.Reference, ctx.Err())
		case <-timer.C:
		}
	}

	return maxAttempts, fmt.Errorf("Run %s after %s: %w", job.Reference, job.MaxWait, domain.ErrPollTimeout)
}
