package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBankDetails(t *testing.T) {
	bank, acct, err := parseBankDetails("  Opay ,  01234567890 ")
	require.NoError(t, err)
	assert.Equal(t, "Opay", bank)
	assert.Equal(t, "01234567890", acct)

	_, _, err = parseBankDetails("Opay,123")
	assert.ErrorIs(t, err, errAccountNumber)

	_, _, err = parseBankDetails(", 0123456789")
	assert.ErrorIs(t, err, errBankFormat)
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, isGreeting("hi"))
	assert.True(t, isGreeting("hello!"))
	assert.True(t, isGreeting("/start"))
	assert.False(t, isGreeting("withdraw"))
}

func TestTokenDisplay(t *testing.T) {
	emoji, symbol := tokenDisplay(usdtStarknetContract)
	assert.Equal(t, "💵", emoji)
	assert.Equal(t, "USDT", symbol)

	_, symbol = tokenDisplay("0xdead")
	assert.Equal(t, "TOKEN", symbol)
}
