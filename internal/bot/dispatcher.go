package bot

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/fx"
	"github.com/kharon-pay/whatsapp-bot/internal/gateway"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
	"github.com/kharon-pay/whatsapp-bot/internal/messaging"
	"github.com/kharon-pay/whatsapp-bot/internal/reconcile"
	"github.com/kharon-pay/whatsapp-bot/internal/session"
)

type backend interface {
	ProvisionAccount(ctx context.Context, username, phone string) error
	ProvisionController(ctx context.Context, username, phone string) (string, error)
	GetAddress(ctx context.Context, phone string) (string, error)
	GetBalance(ctx context.Context, phone, token, address string) (domain.Balance, error)
	GetRate(ctx context.Context) (decimal.Decimal, error)
	VerifyBank(ctx context.Context, phone, bankName, accountNumber string) (domain.BankVerification, error)
	ListSavedBanks(ctx context.Context, phone string) ([]domain.SavedBank, error)
	SaveBank(ctx context.Context, phone string, v domain.BankVerification) error
	InitiateWithdrawal(ctx context.Context, req gateway.WithdrawalRequest) (domain.WithdrawalReceipt, error)
	TriggerPayment(ctx context.Context, token string, amount decimal.Decimal, reference, phone string) error
}

type reconciler interface {
	Start(job reconcile.Job) bool
}

type Options struct {
	SettlementToken  string
	BalanceAddress   string
	LocalCurrency    string
	ReconcileMaxWait time.Duration
}

// Dispatcher routes each inbound message by the sender's conversation state.
// Decisions and state changes happen under the per-user lock; backend calls
// run outside it while the session is claimed. Messages from one sender are
// applied one at a time.
type Dispatcher struct {
	store      *session.Store
	backend    backend
	quoter     *fx.Quoter
	replies    *messaging.Sequencer
	reconciler reconciler
	opts       Options
	now        func() time.Time
}

func NewDispatcher(store *session.Store, b backend, replies *messaging.Sequencer, r reconciler, opts Options) *Dispatcher {
	if opts.LocalCurrency == "" {
		opts.LocalCurrency = "NGN"
	}
	return &Dispatcher{
		store:      store,
		backend:    b,
		quoter:     fx.NewQuoter(b, opts.LocalCurrency),
		replies:    replies,
		reconciler: r,
		opts:       opts,
		now:        time.Now,
	}
}

// step is what a state handler decides while holding the lock. replies go out
// first; effect, when set, runs without the lock against a snapshot.
type step struct {
	replies []string
	op      string
	effect  func(ctx context.Context, snap domain.Session) outcome
}

// outcome is the result of an effect. commit runs under the lock.
type outcome struct {
	replies []string
	commit  func(s *domain.Session) error
}

func reply(msgs ...string) step {
	return step{replies: msgs}
}

func (d *Dispatcher) Handle(ctx context.Context, phone, text string) {
	log := logging.FromContext(ctx).With("phone", logging.MaskPhone(phone))
	ctx = logging.WithLogger(ctx, log)
	text = strings.TrimSpace(text)

	var (
		st   step
		snap domain.Session
	)
	// A message that arrives while an earlier one is mid-call waits for its
	// commit, so every message sees the state the previous one left.
	d.store.WhenIdle(phone, func(s *domain.Session) {
		from := s.State
		st = d.decide(ctx, s, text)
		if st.effect != nil {
			s.Claim(st.op)
			snap = s.Clone()
		}
		log.Debug("message routed", "from", from, "to", s.State, "op", st.op)
	})

	thread := d.replies.Thread(phone)
	thread.Send(ctx, st.replies...)
	if st.effect == nil {
		return
	}

	released := false
	defer func() {
		if !released {
			d.store.With(phone, func(s *domain.Session) { s.Release() })
		}
	}()

	out := st.effect(ctx, snap)

	d.store.With(phone, func(s *domain.Session) {
		defer s.Release()
		if out.commit == nil {
			return
		}
		if err := out.commit(s); err != nil {
			log.Error("failed to commit session update", "op", st.op, "state", s.State, "error", err)
			s.Clear()
			out.replies = []string{msgInternalError}
		}
	})
	released = true

	thread.Send(ctx, out.replies...)
}

func (d *Dispatcher) decide(ctx context.Context, s *domain.Session, text string) step {
	switch s.State {
	case domain.StateInitial:
		return d.onInitial(ctx, s, text)
	case domain.StateAccountCreation:
		return d.onAccountCreation(s, text)
	case domain.StateOfframpConfirmation:
		return d.onOfframpConfirmation(s, text)
	case domain.StateBankDetailsEntry:
		return d.onBankDetailsEntry(s, text)
	case domain.StateBankDetailsConfirmation:
		return d.onBankDetailsConfirmation(ctx, s, text)
	case domain.StateSavedBankConfirmation:
		return d.onSavedBankConfirmation(s, text)
	default:
		logging.FromContext(ctx).Error("session in unknown state, resetting", "state", s.State)
		s.Clear()
		return reply(msgUnknownCommand)
	}
}
