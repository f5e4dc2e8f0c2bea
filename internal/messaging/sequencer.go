package messaging

import (
	"context"
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Sequencer delivers replies in order with a minimum gap between sends so chat
// clients display them in the order produced. Delivery errors are logged and
// dropped.
type Sequencer struct {
	sender Sender
	gap    time.Duration
}

func NewSequencer(sender Sender, gap time.Duration) *Sequencer {
	return &Sequencer{sender: sender, gap: gap}
}

// Thread returns a reply thread for one recipient. The gap is kept between
// every pair of sends made through the same thread, including across calls.
func (s *Sequencer) Thread(to string) *Thread {
	return &Thread{seq: s, to: to}
}

func (s *Sequencer) Send(ctx context.Context, to, body string) {
	s.Thread(to).Send(ctx, body)
}

// Thread is not safe for concurrent use.
type Thread struct {
	seq  *Sequencer
	to   string
	last time.Time
}

func (t *Thread) Send(ctx context.Context, messages ...string) {
	log := logging.FromContext(ctx)

	for i, msg := range messages {
		if wait := t.seq.gap - time.Since(t.last); !t.last.IsZero() && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Warn("reply batch abandoned", "error", ctx.Err(), "remaining", len(messages)-i)
				return
			case <-timer.C:
			}
		}

		if err := t.seq.sender.Send(ctx, t.to, msg); err != nil {
			log.Error("failed to send message", "to", logging.MaskPhone(t.to), "error", err)
		}
		t.last = time.Now()
	}
}
