package commission

import "github.com/shopspring/decimal"

// SellerEarning returns the seller's share of an order amount after the
// platform commission. Called exactly once at order creation; the result is
// stored on the order and never recomputed.
func SellerEarning(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Sub(Fee(amount, rate))
}

// Fee returns the platform's cut for an order amount.
func Fee(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(4)
}
