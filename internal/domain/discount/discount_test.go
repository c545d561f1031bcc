package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func newCode(mod func(*Code)) *Code {
	c := &Code{
		ID:         "d1",
		Code:       "WELCOME10",
		Type:       TypePercentage,
		Value:      decimal.NewFromInt(10),
		ExpiryDate: time.Now().Add(24 * time.Hour),
		Active:     true,
	}
	if mod != nil {
		mod(c)
	}
	return c
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "WELCOME10", Normalize("  welcome10 "))
	assert.Equal(t, "OVER9000", Normalize("over9000"))
}

func TestValidate_Active(t *testing.T) {
	c := newCode(nil)
	require.NoError(t, c.Validate(time.Now()))
}

func TestValidate_Inactive(t *testing.T) {
	c := newCode(func(c *Code) { c.Active = false })
	require.ErrorIs(t, c.Validate(time.Now()), ErrInvalid)
}

func TestValidate_Expired(t *testing.T) {
	c := newCode(func(c *Code) { c.ExpiryDate = time.Now().Add(-time.Hour) })
	require.ErrorIs(t, c.Validate(time.Now()), ErrExpired)
}

func TestValidate_Exhausted(t *testing.T) {
	c := newCode(func(c *Code) {
		c.UsageLimit = intPtr(5)
		c.UsedCount = 5
	})
	require.ErrorIs(t, c.Validate(time.Now()), ErrExhausted)
}

func TestValidate_WithinUsageLimit(t *testing.T) {
	c := newCode(func(c *Code) {
		c.UsageLimit = intPtr(5)
		c.UsedCount = 4
	})
	require.NoError(t, c.Validate(time.Now()))
}

func TestValidate_UnlimitedUsage(t *testing.T) {
	c := newCode(func(c *Code) { c.UsedCount = 1_000_000 })
	require.NoError(t, c.Validate(time.Now()))
}

func TestAmount_Percentage(t *testing.T) {
	c := newCode(nil)

	amount, err := c.Amount(decimal.NewFromInt(360))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(36).Equal(amount), "got %s", amount)
}

func TestAmount_FixedCappedAtSubtotal(t *testing.T) {
	c := newCode(func(c *Code) {
		c.Type = TypeFixed
		c.Value = decimal.NewFromInt(500)
	})

	amount, err := c.Amount(decimal.NewFromInt(360))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(360).Equal(amount), "got %s", amount)
}

func TestAmount_Fixed(t *testing.T) {
	c := newCode(func(c *Code) {
		c.Type = TypeFixed
		c.Value = decimal.NewFromInt(50)
	})

	amount, err := c.Amount(decimal.NewFromInt(360))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(amount), "got %s", amount)
}

func TestAmount_UnknownType(t *testing.T) {
	c := newCode(func(c *Code) { c.Type = "bogus" })

	_, err := c.Amount(decimal.NewFromInt(100))
	require.Error(t, err)
}
