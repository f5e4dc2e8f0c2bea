package bot

import (
	"context"
	"errors"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/gateway"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
	"github.com/kharon-pay/whatsapp-bot/internal/reconcile"
)

func clearSession(s *domain.Session) error {
	s.Clear()
	return nil
}

// executeWithdrawal initiates the offramp against a saved bank, confirms the
// payment and hands the reference to reconciliation. The flow ends here
// whatever the result.
func (d *Dispatcher) executeWithdrawal(ctx context.Context, snap domain.Session, bank domain.SavedBank) outcome {
	log := logging.FromContext(ctx)

	pw := snap.PendingWithdrawal
	if pw == nil {
		log.Error("withdrawal reached execution without an amount",
			"error", domain.ErrMissingPendingWithdrawal, "state", snap.State)
		return outcome{replies: []string{msgInternalError}, commit: clearSession}
	}

	phone := backendPhone(snap.Phone)
	receipt, err := d.backend.InitiateWithdrawal(ctx, gateway.WithdrawalRequest{
		Phone:         phone,
		Amount:        pw.Amount,
		TokenSymbol:   pw.Currency,
		BankAccountID: bank.ID,
		Currency:      d.opts.LocalCurrency,
	})
	if err != nil {
		reason := reasonInitiateFailed
		var rejected *domain.RejectedError
		if errors.As(err, &rejected) {
			reason = rejected.Reason
			log.Warn("withdrawal rejected", "reason", rejected.Reason)
		} else {
			log.Error("failed to initiate withdrawal", "error", err)
		}
		return outcome{replies: []string{withdrawalFailedMessage(reason)}, commit: clearSession}
	}
	initiatedAt := d.now()

	log = log.With("reference", receipt.Reference)
	if err := d.backend.TriggerPayment(ctx, d.opts.SettlementToken, pw.Amount, receipt.Reference, phone); err != nil {
		log.Error("failed to trigger payment", "error", err)
		return outcome{replies: []string{withdrawalFailedMessage(reasonPaymentFailed)}, commit: clearSession}
	}

	started := d.reconciler.Start(reconcile.Job{
		Reference:   receipt.Reference,
		Phone:       phone,
		BankName:    receipt.Disbursement.BankName,
		AccountName: receipt.Disbursement.AccountName,
		InitiatedAt: initiatedAt,
		MaxWait:     d.opts.ReconcileMaxWait,
	})
	if !started {
		log.Warn("reconciliation not started")
	}

	log.Info("withdrawal submitted", "amount", pw.Amount.String(), "currency", pw.Currency)
	return outcome{
		replies: []string{submittedMessage(*pw, bank, receipt.Reference)},
		commit:  clearSession,
	}
}
