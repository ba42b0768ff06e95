package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestGroupedAmount(t *testing.T) {
	printer := message.NewPrinter(language.English)

	require.Equal(t, "0.00", groupedAmount(printer, decimal.Zero))
	require.Equal(t, "1,234,567.89", groupedAmount(printer, decimal.RequireFromString("1234567.89")))
	require.Equal(t, "-0.50", groupedAmount(printer, decimal.RequireFromString("-0.5")))
	// Beyond float64's exact integer range; a float round trip would drift.
	require.Equal(t, "123,456,789,012,345.67", groupedAmount(printer, decimal.RequireFromString("123456789012345.67")))
}
