package reconcile

import (
	"fmt"
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

func elapsedText(from, to time.Time) string {
	d := to.Sub(from)
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int(d/time.Second) % 60
	if minutes > 0 {
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

func completionMessage(job Job, st domain.TransactionStatus) string {
	amount := "0.00"
	if st.Amount != nil {
		amount = st.Amount.StringFixed(2)
	}
	completedAt := st.LastUpdated
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	return fmt.Sprintf("✅ *Withdrawal Completed Successfully! 🎉*\n\n"+
		"Funds deposited to your bank account:\n\n"+
		"💰 *Amount:* %s %s\n"+
		"🏦 *Bank:* %s\n"+
		"👤 *Account Name:* %s\n\n"+
		"🔢 *Reference:* %s\n\n"+
		"⏱️ *Withdrawal processed in:* %s\n\n"+
		"📅 *Completed at:* %s\n\n"+
		"Thank you for using KharonPay!",
		amount, st.Currency,
		job.BankName,
		job.AccountName,
		st.Reference,
		elapsedText(job.InitiatedAt, completedAt),
		completedAt.UTC().Format("2006-01-02 15:04:05"),
	)
}

func failureMessage(st domain.TransactionStatus) string {
	return fmt.Sprintf("❌ *Withdrawal Failed*\n\n"+
		"Unfortunately, your withdrawal could not be completed.\n\n"+
		"🔢 *Reference:* %s\n"+
		"📅 *Status:* %s\n\n"+
		"Please contact support for assistance.",
		st.Reference, st.Status,
	)
}
