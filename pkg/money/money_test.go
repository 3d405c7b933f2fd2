package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound2HalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1.00",
		"2.675":  "2.68",
		"0.125":  "0.13",
		"10":     "10",
		"149.50": "149.5",
	}
	for in, want := range cases {
		assert.True(t, Round2(d(in)).Equal(d(want)), "Round2(%s) = %s want %s", in, Round2(d(in)), want)
	}
}

func TestPercent(t *testing.T) {
	got := Percent(d("1000"), d("10"))
	assert.True(t, got.Equal(d("100")), "10%% of 1000 = %s", got)

	got = Percent(d("333.33"), d("15"))
	assert.True(t, Round2(got).Equal(d("50.00")), "15%% of 333.33 rounded = %s", Round2(got))
}

func TestMaxAndClampFloor(t *testing.T) {
	assert.True(t, Max(d("1"), d("2")).Equal(d("2")))
	assert.True(t, Max(d("3"), d("2")).Equal(d("3")))
	assert.True(t, ClampFloor(d("-5"), decimal.Zero).IsZero())
	assert.True(t, ClampFloor(d("5"), decimal.Zero).Equal(d("5")))
}
