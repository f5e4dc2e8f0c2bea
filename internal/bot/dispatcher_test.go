package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/gateway"
	"github.com/kharon-pay/whatsapp-bot/internal/messaging"
	"github.com/kharon-pay/whatsapp-bot/internal/reconcile"
	"github.com/kharon-pay/whatsapp-bot/internal/session"
)

const testPhone = "+2348012345678"

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	rate       decimal.Decimal
	rateErr    error
	rateGate   chan struct{}
	rateEnter  chan struct{}
	banksGate  chan struct{}
	banksEnter chan struct{}
	address    string
	addressErr error
	banks      []domain.SavedBank
	verified   domain.BankVerification
	initiate   domain.WithdrawalReceipt
	initErr    error
	provErr    error
	withdrawal gateway.WithdrawalRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:   map[string]int{},
		rate:    decimal.NewFromInt(1500),
		address: "0xabc",
		verified: domain.BankVerification{
			BankName: "Opay", AccountName: "ADA OBI", AccountNumber: "01234567890", BankCode: "999992",
		},
		initiate: domain.WithdrawalReceipt{
			Reference:    "ref-1",
			Disbursement: domain.Disbursement{BankName: "Opay", AccountName: "ADA OBI"},
		},
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ProvisionAccount(_ context.Context, _, _ string) error {
	f.hit("ProvisionAccount")
	return f.provErr
}

func (f *fakeBackend) ProvisionController(_ context.Context, _, _ string) (string, error) {
	f.hit("ProvisionController")
	return f.address, nil
}

func (f *fakeBackend) GetAddress(_ context.Context, _ string) (string, error) {
	f.hit("GetAddress")
	return f.address, f.addressErr
}

func (f *fakeBackend) GetBalance(_ context.Context, _, token, _ string) (domain.Balance, error) {
	f.hit("GetBalance")
	return domain.Balance{Amount: decimal.NewFromFloat(12.5), Token: token}, nil
}

func (f *fakeBackend) GetRate(_ context.Context) (decimal.Decimal, error) {
	f.hit("GetRate")
	if f.rateEnter != nil {
		f.rateEnter <- struct{}{}
	}
	if f.rateGate != nil {
		<-f.rateGate
	}
	return f.rate, f.rateErr
}

func (f *fakeBackend) VerifyBank(_ context.Context, _, _, _ string) (domain.BankVerification, error) {
	f.hit("VerifyBank")
	return f.verified, nil
}

func (f *fakeBackend) ListSavedBanks(_ context.Context, _ string) ([]domain.SavedBank, error) {
	f.hit("ListSavedBanks")
	if f.banksEnter != nil {
		f.banksEnter <- struct{}{}
	}
	if f.banksGate != nil {
		<-f.banksGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banks, nil
}

func (f *fakeBackend) SaveBank(_ context.Context, _ string, v domain.BankVerification) error {
	f.hit("SaveBank")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banks = append(f.banks, domain.SavedBank{
		ID: "bank-1", BankName: v.BankName, AccountNumber: v.AccountNumber, AccountName: v.AccountName,
	})
	return nil
}

func (f *fakeBackend) InitiateWithdrawal(_ context.Context, req gateway.WithdrawalRequest) (domain.WithdrawalReceipt, error) {
	f.hit("InitiateWithdrawal")
	f.mu.Lock()
	f.withdrawal = req
	f.mu.Unlock()
	return f.initiate, f.initErr
}

func (f *fakeBackend) TriggerPayment(_ context.Context, _ string, _ decimal.Decimal, _, _ string) error {
	f.hit("TriggerPayment")
	return nil
}

type fakeReconciler struct {
	mu   sync.Mutex
	jobs []reconcile.Job
}

func (f *fakeReconciler) Start(job reconcile.Job) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return true
}

type chatLog struct {
	mu   sync.Mutex
	sent []string
}

func (c *chatLog) Send(_ context.Context, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, body)
	return nil
}

func (c *chatLog) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

func (c *chatLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type harness struct {
	d     *Dispatcher
	store *session.Store
	be    *fakeBackend
	chat  *chatLog
	rec   *fakeReconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: session.NewStore(),
		be:    newFakeBackend(),
		chat:  &chatLog{},
		rec:   &fakeReconciler{},
	}
	h.d = NewDispatcher(h.store, h.be, messaging.NewSequencer(h.chat, 0), h.rec, Options{
		SettlementToken:  usdtStarknetContract,
		BalanceAddress:   "0xbalance",
		LocalCurrency:    "NGN",
		ReconcileMaxWait: time.Minute,
	})
	return h
}

func (h *harness) send(text string) {
	h.d.Handle(context.Background(), testPhone, text)
}

func (h *harness) session(t *testing.T) domain.Session {
	t.Helper()
	s, ok := h.store.Snapshot(testPhone)
	require.True(t, ok)
	return s
}

func TestDispatcher_Greeting(t *testing.T) {
	h := newHarness(t)

	h.send("Hi there")

	assert.Equal(t, msgWelcome, h.chat.last())
	assert.Equal(t, domain.StateInitial, h.session(t).State)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	h.send("gibberish")

	assert.Equal(t, msgUnknownCommand, h.chat.last())
}

func TestDispatcher_WithdrawRejectsInvalidAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"not a number", "withdraw abc USDT", msgInvalidAmount},
		{"zero", "withdraw 0 USDT", msgInvalidAmount},
		{"negative", "withdraw -5 USDT", msgInvalidAmount},
		{"missing crypto", "withdraw 5", msgWithdrawUsage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)

			h.send(tc.text)

			assert.Equal(t, tc.want, h.chat.last())
			s := h.session(t)
			assert.Equal(t, domain.StateInitial, s.State)
			assert.Nil(t, s.PendingWithdrawal)
			assert.Zero(t, h.be.count("GetRate"))
		})
	}
}

func TestDispatcher_WithdrawQuote(t *testing.T) {
	h := newHarness(t)

	h.send("withdraw 5 usdt")

	s := h.session(t)
	require.Equal(t, domain.StateOfframpConfirmation, s.State)
	require.NotNil(t, s.PendingWithdrawal)
	assert.True(t, s.PendingWithdrawal.Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "USDT", s.PendingWithdrawal.Currency)
	assert.Contains(t, h.chat.last(), "₦7500.00")
	assert.Empty(t, s.Busy)
}

func TestDispatcher_WithdrawRateFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.be.rateErr = errors.New("rate service down")

	h.send("withdraw 5 USDT")

	assert.Equal(t, msgRateFailed, h.chat.last())
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingWithdrawal)
}

func TestDispatcher_CancelClearsFlow(t *testing.T) {
	h := newHarness(t)

	h.send("withdraw 5 USDT")
	h.send("CANCEL")

	assert.Equal(t, msgWithdrawalCancelled, h.chat.last())
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingWithdrawal)
}

func TestDispatcher_OfframpConfirmationReprompts(t *testing.T) {
	h := newHarness(t)

	h.send("withdraw 5 USDT")
	h.send("maybe")

	assert.Equal(t, msgConfirmOrAbort, h.chat.last())
	assert.Equal(t, domain.StateOfframpConfirmation, h.session(t).State)
}

func TestDispatcher_BankDetailsValidation(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantState domain.UserState
		wantReply string
		verified  int
	}{
		{"valid", "Opay, 01234567890", domain.StateBankDetailsConfirmation, "", 1},
		{"short account", "Opay,123", domain.StateBankDetailsEntry, msgInvalidAccountNumber, 0},
		{"letters in account", "Opay, 01234abcde9", domain.StateBankDetailsEntry, msgInvalidAccountNumber, 0},
		{"no comma", "Opay 0123456789", domain.StateBankDetailsEntry, msgInvalidBankFormat, 0},
		{"too many fields", "Opay, 0123456789, extra", domain.StateBankDetailsEntry, msgInvalidBankFormat, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.send("withdraw 5 USDT")
			h.send("confirm")
			require.Equal(t, domain.StateBankDetailsEntry, h.session(t).State)

			h.send(tc.text)

			s := h.session(t)
			assert.Equal(t, tc.wantState, s.State)
			assert.Equal(t, tc.verified, h.be.count("VerifyBank"))
			if tc.wantReply != "" {
				assert.Equal(t, tc.wantReply, h.chat.last())
			} else {
				require.NotNil(t, s.PendingVerification)
				assert.Equal(t, "ADA OBI", s.PendingVerification.AccountName)
			}
		})
	}
}

func TestDispatcher_RejectingVerificationReturnsToEntry(t *testing.T) {
	h := newHarness(t)
	h.send("withdraw 5 USDT")
	h.send("confirm")
	h.send("Opay, 01234567890")

	h.send("no")

	s := h.session(t)
	assert.Equal(t, domain.StateBankDetailsEntry, s.State)
	assert.Nil(t, s.PendingVerification)
	assert.NotNil(t, s.PendingWithdrawal)
	assert.Equal(t, msgReenterBankDetails, h.chat.last())
}

func TestDispatcher_NewBankWithdrawalEndToEnd(t *testing.T) {
	h := newHarness(t)

	h.send("withdraw 5 USDT")
	h.send("confirm")
	h.send("Opay, 01234567890")
	h.send("yes")

	assert.Equal(t, 1, h.be.count("SaveBank"))
	assert.Equal(t, 1, h.be.count("InitiateWithdrawal"))
	assert.Equal(t, 1, h.be.count("TriggerPayment"))
	assert.Equal(t, "bank-1", h.be.withdrawal.BankAccountID)
	assert.Equal(t, "2348012345678", h.be.withdrawal.Phone)
	assert.Equal(t, "NGN", h.be.withdrawal.Currency)
	assert.True(t, h.be.withdrawal.Amount.Equal(decimal.NewFromInt(5)))

	require.Len(t, h.rec.jobs, 1)
	job := h.rec.jobs[0]
	assert.Equal(t, "ref-1", job.Reference)
	assert.Equal(t, "2348012345678", job.Phone)
	assert.Equal(t, time.Minute, job.MaxWait)

	assert.Contains(t, h.chat.last(), "Withdrawal Request Submitted")
	assert.Contains(t, h.chat.last(), "ref-1")

	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingWithdrawal)
	assert.Nil(t, s.PendingBank)
	assert.Nil(t, s.PendingVerification)
}

func TestDispatcher_SavedBankWithdrawal(t *testing.T) {
	h := newHarness(t)
	h.be.banks = []domain.SavedBank{{ID: "saved-9", BankName: "GTBank", AccountNumber: "0123456789", AccountName: "ADA OBI"}}

	h.send("withdraw 20 USDT")
	h.send("confirm")

	s := h.session(t)
	require.Equal(t, domain.StateSavedBankConfirmation, s.State)
	require.NotNil(t, s.PendingBank)
	assert.Contains(t, h.chat.last(), "GTBank")

	h.send("YES")

	assert.Equal(t, "saved-9", h.be.withdrawal.BankAccountID)
	assert.Len(t, h.rec.jobs, 1)
	assert.Equal(t, domain.StateInitial, h.session(t).State)
}

func TestDispatcher_SavedBankDeclinedClears(t *testing.T) {
	h := newHarness(t)
	h.be.banks = []domain.SavedBank{{ID: "saved-9", BankName: "GTBank"}}

	h.send("withdraw 20 USDT")
	h.send("confirm")
	h.send("no")

	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingBank)
	assert.Zero(t, h.be.count("InitiateWithdrawal"))
}

func TestDispatcher_RejectedWithdrawalClearsSession(t *testing.T) {
	h := newHarness(t)
	h.be.banks = []domain.SavedBank{{ID: "saved-9", BankName: "GTBank"}}
	h.be.initErr = &domain.RejectedError{Op: "InitiateWithdrawal", Reason: "Insufficient balance"}

	h.send("withdraw 20 USDT")
	h.send("confirm")
	h.send("yes")

	assert.Contains(t, h.chat.last(), "Insufficient balance")
	assert.Zero(t, h.be.count("TriggerPayment"))
	assert.Empty(t, h.rec.jobs)
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingWithdrawal)
}

func TestDispatcher_MissingPendingWithdrawal(t *testing.T) {
	h := newHarness(t)
	h.store.With(testPhone, func(s *domain.Session) {
		s.State = domain.StateSavedBankConfirmation
		s.PendingBank = &domain.SavedBank{ID: "saved-9"}
	})

	h.send("yes")

	assert.Equal(t, msgInternalError, h.chat.last())
	assert.Zero(t, h.be.count("InitiateWithdrawal"))
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingBank)
}

func TestDispatcher_CreateWithUsername(t *testing.T) {
	h := newHarness(t)

	h.send("create ada")

	assert.Equal(t, []string{msgCreatingAccount, "0xabc", msgAccountCreated}, h.chat.all())
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	require.NotNil(t, s.ControllerAddress)
	assert.Equal(t, "0xabc", *s.ControllerAddress)
	require.NotNil(t, s.AccountID)
	assert.Equal(t, "ada", *s.AccountID)
}

func TestDispatcher_CreatePromptsForUsername(t *testing.T) {
	h := newHarness(t)

	h.send("create")
	assert.Equal(t, msgAskUsername, h.chat.last())
	assert.Equal(t, domain.StateAccountCreation, h.session(t).State)

	h.send("ada")
	assert.Equal(t, 1, h.be.count("ProvisionController"))
	assert.Equal(t, domain.StateInitial, h.session(t).State)
}

func TestDispatcher_CreateFailureAllowsRetry(t *testing.T) {
	h := newHarness(t)
	h.be.provErr = errors.New("username taken")

	h.send("create ada")

	assert.Equal(t, msgAccountFailed, h.chat.last())
	assert.Zero(t, h.be.count("ProvisionController"))
	s := h.session(t)
	assert.Equal(t, domain.StateAccountCreation, s.State)
	assert.Nil(t, s.ControllerAddress)
}

func TestDispatcher_AddressNotFound(t *testing.T) {
	h := newHarness(t)
	h.be.addressErr = domain.ErrNotFound

	h.send("address")

	assert.Equal(t, msgNoWallet, h.chat.last())
}

func TestDispatcher_Balance(t *testing.T) {
	h := newHarness(t)

	h.send("balance")

	assert.Contains(t, h.chat.last(), "💵 USDT: 12.50")
}

func sendAsync(h *harness, text string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.send(text)
	}()
	return done
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func assertPending(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("%s finished while an earlier message was in flight", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_ConcurrentMessagesApplyInOrder(t *testing.T) {
	h := newHarness(t)
	h.be.rateGate = make(chan struct{})
	h.be.rateEnter = make(chan struct{}, 1)

	first := sendAsync(h, "withdraw 5 USDT")
	waitFor(t, h.be.rateEnter, "rate request")

	second := sendAsync(h, "withdraw 5 USDT")
	assertPending(t, second, "second withdraw")

	close(h.be.rateGate)
	waitFor(t, first, "first withdraw")
	waitFor(t, second, "second withdraw")

	// The second message sees the quote the first one committed.
	assert.Equal(t, 1, h.be.count("GetRate"))
	assert.Equal(t, msgConfirmOrAbort, h.chat.last())
	s := h.session(t)
	assert.Equal(t, domain.StateOfframpConfirmation, s.State)
	assert.Empty(t, s.Busy)
}

func TestDispatcher_CancelDuringBankLookupIsApplied(t *testing.T) {
	h := newHarness(t)
	h.send("withdraw 5 USDT")
	require.Equal(t, domain.StateOfframpConfirmation, h.session(t).State)

	h.be.banksGate = make(chan struct{})
	h.be.banksEnter = make(chan struct{}, 1)

	confirm := sendAsync(h, "confirm")
	waitFor(t, h.be.banksEnter, "bank lookup")

	cancel := sendAsync(h, "cancel")
	assertPending(t, cancel, "cancel")

	close(h.be.banksGate)
	waitFor(t, confirm, "confirm")
	waitFor(t, cancel, "cancel")

	// confirm then cancel, and cancel then confirm, both end idle with
	// nothing pending.
	s := h.session(t)
	assert.Equal(t, domain.StateInitial, s.State)
	assert.Nil(t, s.PendingWithdrawal)
	assert.Empty(t, s.Busy)

	sent := h.chat.all()
	require.GreaterOrEqual(t, len(sent), 2)
	assert.Equal(t, []string{msgBankDetailsRequired, msgWithdrawalCancelled}, sent[len(sent)-2:])
}

func TestDispatcher_UsersDoNotBlockEachOther(t *testing.T) {
	h := newHarness(t)
	h.be.rateGate = make(chan struct{})
	h.be.rateEnter = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.send("withdraw 5 USDT")
	}()
	<-h.be.rateEnter

	h.d.Handle(context.Background(), "+2349098765432", "help")
	assert.Equal(t, msgHelp, h.chat.last())

	close(h.be.rateGate)
	<-done
}
