package notify

import (
	"fmt"
	"strings"
)

// OrderSummary carries the fields message templates need.
type OrderSummary struct {
	OrderID      string
	StoreName    string
	CustomerName string
	ItemCount    int
	Total        int64
	Currency     string
	StatusName   string
}

func formatAmount(total int64, currency string) string {
	return fmt.Sprintf("%d %s", total, currency)
}

// CustomerOrderCreated is sent to the buyer right after checkout.
func CustomerOrderCreated(o OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order at %s!\n", o.StoreName)
	fmt.Fprintf(&b, "Order %s: %d item(s), total %s.\n", o.OrderID, o.ItemCount, formatAmount(o.Total, o.Currency))
	b.WriteString("We will message you as your order moves along.")
	return b.String()
}

// MerchantOrderCreated is sent to the store owner right after checkout.
func MerchantOrderCreated(o OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s at %s.\n", o.OrderID, o.StoreName)
	fmt.Fprintf(&b, "%d item(s), total %s.", o.ItemCount, formatAmount(o.Total, o.Currency))
	if o.CustomerName != "" {
		fmt.Fprintf(&b, "\nCustomer: %s.", o.CustomerName)
	}
	return b.String()
}

// SupportOrderCreated is sent to the platform support line.
func SupportOrderCreated(o OrderSummary) string {
	return fmt.Sprintf("Order %s placed at %s, total %s.",
		o.OrderID, o.StoreName, formatAmount(o.Total, o.Currency))
}

// CustomerStatusChanged is sent to the buyer on every workflow transition.
func CustomerStatusChanged(o OrderSummary) string {
	return fmt.Sprintf("Update from %s: order %s is now %s.",
		o.StoreName, o.OrderID, o.StatusName)
}
