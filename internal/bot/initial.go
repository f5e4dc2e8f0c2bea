package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

func (d *Dispatcher) onInitial(ctx context.Context, s *domain.Session, text string) step {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return reply(msgUnknownCommand)
	}

	switch cmd := strings.ToLower(fields[0]); {
	case cmd == "create":
		if err := s.Transition(domain.StateAccountCreation); err != nil {
			return d.abort(ctx, s, err)
		}
		if len(fields) > 1 {
			return d.provisionStep(strings.Join(fields[1:], " "))
		}
		return reply(msgAskUsername)
	case cmd == "address":
		return step{op: "address", effect: d.lookupAddress}
	case cmd == "balance":
		return step{op: "balance", effect: d.lookupBalance}
	case cmd == "withdraw":
		return d.withdrawQuote(fields)
	case cmd == "help":
		return reply(msgHelp)
	case isGreeting(cmd):
		return reply(msgWelcome)
	default:
		return reply(msgUnknownCommand)
	}
}

// abort handles a transition the table rejected. It only fires on a routing
// bug, so the flow is dropped rather than left half-applied.
func (d *Dispatcher) abort(ctx context.Context, s *domain.Session, err error) step {
	logging.FromContext(ctx).Error("rejected session transition", "state", s.State, "error", err)
	s.Clear()
	return reply(msgInternalError)
}

func (d *Dispatcher) lookupAddress(ctx context.Context, snap domain.Session) outcome {
	address, err := d.backend.GetAddress(ctx, backendPhone(snap.Phone))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return outcome{replies: []string{msgNoWallet}}
	case err != nil:
		logging.FromContext(ctx).Error("failed to get address", "error", err)
		return outcome{replies: []string{msgAddressFailed}}
	}
	return outcome{replies: []string{address, msgAddressNote}}
}

func (d *Dispatcher) lookupBalance(ctx context.Context, snap domain.Session) outcome {
	bal, err := d.backend.GetBalance(ctx, backendPhone(snap.Phone), d.opts.SettlementToken, d.opts.BalanceAddress)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return outcome{replies: []string{msgNoAccount}}
	case err != nil:
		logging.FromContext(ctx).Error("failed to get balance", "error", err)
		return outcome{replies: []string{msgBalanceFailed}}
	}
	return outcome{replies: []string{balanceMessage(bal)}}
}

func (d *Dispatcher) withdrawQuote(fields []string) step {
	if len(fields) < 3 {
		return reply(msgWithdrawUsage)
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return reply(msgInvalidAmount)
	}
	crypto := strings.ToUpper(fields[2])

	return step{
		op: "quote",
		effect: func(ctx context.Context, _ domain.Session) outcome {
			quote, err := d.quoter.Quote(ctx, amount, crypto)
			if err != nil {
				logging.FromContext(ctx).Error("failed to quote withdrawal", "error", err)
				return outcome{replies: []string{msgRateFailed}}
			}
			return outcome{
				replies: []string{quoteMessage(quote)},
				commit: func(s *domain.Session) error {
					if err := s.Transition(domain.StateOfframpConfirmation); err != nil {
						return err
					}
					s.PendingWithdrawal = &domain.PendingWithdrawal{Amount: quote.Amount, Currency: quote.Crypto}
					return nil
				},
			}
		},
	}
}
