package bot

import (
	"context"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

func (d *Dispatcher) onAccountCreation(s *domain.Session, text string) step {
	if keyword(text) == "cancel" {
		s.Clear()
		return reply(msgAccountCreationCancelled)
	}
	return d.provisionStep(text)
}

// provisionStep creates the custodial account and its wallet controller.
// Failure leaves the session in AccountCreation so the next message retries.
func (d *Dispatcher) provisionStep(username string) step {
	return step{
		replies: []string{msgCreatingAccount},
		op:      "create_account",
		effect: func(ctx context.Context, snap domain.Session) outcome {
			log := logging.FromContext(ctx)
			phone := backendPhone(snap.Phone)

			if err := d.backend.ProvisionAccount(ctx, username, phone); err != nil {
				log.Error("failed to provision account", "error", err)
				return outcome{replies: []string{msgAccountFailed}}
			}
			address, err := d.backend.ProvisionController(ctx, username, phone)
			if err != nil {
				log.Error("failed to provision controller", "error", err)
				return outcome{replies: []string{msgControllerFailed}}
			}

			log.Info("account provisioned")
			return outcome{
				replies: []string{address, msgAccountCreated},
				commit: func(s *domain.Session) error {
					s.AccountID = &username
					s.ControllerAddress = &address
					return s.Transition(domain.StateInitial)
				},
			}
		},
	}
}
