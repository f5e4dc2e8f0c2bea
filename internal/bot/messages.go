package bot

import (
	"fmt"
	"strings"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/fx"
)

const usdtStarknetContract = "0x07d54bad6d6fcff799133a8c0b1fb8120876bb080d75cd601a5c68164d6f6d75"

const (
	msgWelcome = "🟢 Welcome to *Kharon Pay*! 💰\n\n" +
		"Send crypto to your bank in seconds.\n\n" +
		"📱 *Commands:*\n" +
		"• `create` - Create new account\n" +
		"• `address` - Deposit crypto to your wallet address\n" +
		"• `withdraw` - Send crypto to your bank account\n" +
		"• `balance` - Check crypto balance in your wallet\n" +
		"• `help` - Show all commands\n\n" +
		"What would you like to do?"

	msgHelp = "🔰 *Kharon Pay Help*\n\n" +
		"*Commands:*\n" +
		"• `create` - Create new account\n" +
		"• `address` - Get your wallet address\n" +
		"• `balance` - Check crypto balance\n" +
		"• `withdraw [amount] [crypto]` - Send to bank\n\n" +
		"*Examples:*\n" +
		"• `withdraw 100 USDT`\n" +
		"• `balance`\n" +
		"• `address`"

	msgUnknownCommand = "❓ I didn't understand that. Type `help` for available commands or `hi` to start."

	msgInternalError = "⚠️ *Something went wrong on our side.*\n\n" +
		"Your withdrawal was not submitted. Please start again with `withdraw [amount] [crypto]`."

	msgAskUsername = "👤 *Create Account*\n\nReply with the username you would like to use."

	msgCreatingAccount = "🔄 *Creating Your Account!*\n\nPlease wait while we set up your wallet..."

	msgAccountCreated = "🎉 *Account created successfully!*\n\n" +
		"📱 *To withdraw crypto:*\n" +
		"• `copy address` - Copy your wallet address above\n" +
		"• `fund account` - Send crypto to your wallet address.\n" +
		"• `withdraw` - Send crypto to your bank account."

	msgAccountCreationCancelled = "❌ Account creation cancelled. Type `create` to start again."

	msgAccountFailed    = "❌ Account creation failed. Please try again."
	msgControllerFailed = "❌ Account creation failed during wallet setup. Please try again or contact support."

	msgAddressNote   = "💳 *Your Wallet Address:*\n\n⚠️ *Only send USDT/USDC (Starknet) to this address*"
	msgNoWallet      = "❌ No wallet address found. Please create an account first with `create`."
	msgNoAccount     = "❌ No account found. Please create an account first with `create`."
	msgAddressFailed = "❌ Failed to retrieve address. Please try again."
	msgBalanceFailed = "❌ Failed to retrieve balance. Please try again."
	msgZeroBalance   = "💰 *Your Balance*\n\n🪙 USDT: 0.00\n🪙 USDC: 0.00\n\n💵 Total: $0.00"

	msgWithdrawUsage  = "💸 *Withdraw Format:*\n`withdraw [amount] [crypto]`\n\n*Example:* `withdraw 10 USDT`"
	msgInvalidAmount  = "❌ Invalid amount. Use format: `withdraw [amount] [crypto]`"
	msgRateFailed     = "❌ Failed to get exchange rate. Please try again."
	msgConfirmOrAbort = "❓ Please type `confirm` to proceed or `cancel` to abort."

	msgWithdrawalCancelled = "❌ *Withdrawal Cancelled*\n\n" +
		"Your withdrawal request has been cancelled. Type `withdraw [amount] [crypto]` to start again."

	msgBankLookupFailed = "❌ Failed to check your saved bank details. Please try again."

	msgBankDetailsRequired = "🏦 *Bank Details Required*\n\n" +
		"Please provide your bank details in this format:\n\n" +
		"`Bank Name, Account Number`\n\n" +
		"*Example:* `Opay, 0123456789`"

	msgReenterBankDetails = "🔄 *Please re-enter Bank Details*\n\n" +
		"Please provide your bank details in this format:\n\n" +
		"`Bank Name, Account Number`\n\n" +
		"*Example:* `Opay, 0123456789`"

	msgInvalidBankFormat = "❌ Invalid format. Please provide bank details in this format:\n\n" +
		"`Bank Name, Account Number`\n\n" +
		"*Example:* `Opay, 0123456789`"

	msgInvalidAccountNumber = "❌ Invalid account number. Must be at least 10 digits."

	msgYesOrReenter = "❓ Please type `yes` to confirm or `no` to re-enter."
	msgYesOrCancel  = "❓ Please type `yes` to confirm or `no` to cancel."

	msgVerificationMissing = "❌ Verification data not found. Please re-enter your bank details."
	msgSavedBankMissing    = "❌ Bank details not found. Please start again."
	msgSaveBankFailed      = "❌ Failed to save bank details. Please try again."
	msgSavedBanksEmpty     = "❌ Failed to retrieve saved bank details. Please contact support."

	reasonAccountNotFound = "Account not found. Please check your details and try again."
	reasonVerifyFailed    = "Failed to verify bank details. Please try again."
	reasonInitiateFailed  = "Failed to initiate withdrawal. Please try again, contact support if error persists."
	reasonPaymentFailed   = "Payment confirmation failed. Please contact support."
)

func tokenDisplay(token string) (emoji, symbol string) {
	if strings.EqualFold(token, usdtStarknetContract) {
		return "💵", "USDT"
	}
	return "🪙", "TOKEN"
}

func balanceMessage(b domain.Balance) string {
	if b.Token == "" && b.Amount.IsZero() {
		return msgZeroBalance
	}
	emoji, symbol := tokenDisplay(b.Token)
	amount := b.Amount.StringFixed(2)
	return fmt.Sprintf("💰 *Your Balance*\n\n%s %s: %s\n\n💵 Total: $%s", emoji, symbol, amount, amount)
}

func quoteMessage(q *fx.Quote) string {
	return fmt.Sprintf("💸 *Withdraw Request*\n\n"+
		"Amount: %s %s\n"+
		"Rate: %s%s per %s\n"+
		"You'll receive: %s%s\n\n"+
		"Type `confirm` to proceed or `cancel` to abort.",
		q.Amount.StringFixed(2), q.Crypto,
		q.Symbol(), q.Rate.StringFixed(2), q.Crypto,
		q.Symbol(), q.LocalAmount.StringFixed(2),
	)
}

func savedBankMessage(b domain.SavedBank) string {
	return fmt.Sprintf("🏦 *Your Saved Bank Details:*\n\n"+
		"Bank: %s\n"+
		"Account Name: %s\n"+
		"Account Number: %s\n\n"+
		"Proceed with this account?\n"+
		"Type `yes` to confirm or `no` to cancel.",
		b.BankName, b.AccountName, b.AccountNumber,
	)
}

func verifiedBankMessage(v domain.BankVerification) string {
	return fmt.Sprintf("✅ *Account Verified!*\n\n"+
		"🏦 Bank: %s\n"+
		"👤 Account Name: %s\n"+
		"🔢 Account Number: %s\n\n"+
		"Is this correct?\n"+
		"Type `yes` to confirm or `no` to re-enter.",
		v.BankName, v.AccountName, v.AccountNumber,
	)
}

func verificationFailedMessage(reason string) string {
	return fmt.Sprintf("❌ *Verification Failed*\n\n%s\n\nPlease check your bank details and try again.", reason)
}

func withdrawalFailedMessage(reason string) string {
	return fmt.Sprintf("❌ *Withdrawal Failed*\n\n%s\n\nPlease try again or contact support.", reason)
}

func submittedMessage(pw domain.PendingWithdrawal, bank domain.SavedBank, reference string) string {
	return fmt.Sprintf("✅ *Withdrawal Request Submitted!*\n\n"+
		"📊 *Details:*\n"+
		"• Amount: %s %s\n"+
		"• Bank: %s\n"+
		"• Account: %s (%s)\n"+
		"• Ref: %s\n\n"+
		"⏳ Processing time: 30-60 seconds\n"+
		"📱 You'll receive a confirmation message when completed, standby",
		pw.Amount.StringFixed(2), pw.Currency,
		bank.BankName,
		bank.AccountNumber, bank.AccountName,
		reference,
	)
}
