package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscountedPrice(t *testing.T) {
	cases := []struct {
		name  string
		price Money
		bps   int32
		want  Money
	}{
		{"twenty percent", 10000, 2000, 8000},
		{"rounds half up", 999, 2550, 744},
		{"rounds down below half", 1001, 3333, 667},
		{"one basis point", 10000, 1, 9999},
		{"max discount short of full", 10000, 9999, 1},
		{"zero bps untouched", 5000, 0, 5000},
		{"full discount untouched", 5000, 10000, 5000},
		{"negative bps untouched", 5000, -100, 5000},
		{"zero price", 0, 2000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DiscountedPrice(tc.price, tc.bps))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Line{
		{Qty: 2, UnitPrice: 1000, DiscountedUnit: 800},
		{Qty: 1, UnitPrice: 5000, DiscountedUnit: 5000},
		{Qty: 0, UnitPrice: 99999, DiscountedUnit: 99999},
		{Qty: -3, UnitPrice: 100, DiscountedUnit: 100},
	})
	require.Equal(t, Money(7000), s.Gross)
	require.Equal(t, Money(6600), s.Discounted)
	require.Equal(t, Money(400), s.Discount)
	require.Equal(t, 3, s.ItemCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.Gross)
	require.Zero(t, s.Discounted)
	require.Zero(t, s.Discount)
	require.Zero(t, s.ItemCount)
}
