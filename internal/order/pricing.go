package order

import "github.com/shopspring/decimal"

// ApplyProductCost sets the total to the sum of line price times count. It
// only runs while the total is zero and reports whether it did.
func ApplyProductCost(o *Order) bool {
	if !o.TotalCost.IsZero() {
		return false
	}
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Count))))
	}
	o.TotalCost = total
	return true
}

// ApplyDeliveryCost adds the ordinary tariff unless the total exceeds the
// free delivery threshold, then the express surcharge when express is chosen.
func ApplyDeliveryCost(o *Order, d Delivery) {
	total := o.TotalCost
	if !total.GreaterThan(d.FreeDeliveryPrice) {
		total = total.Add(d.OrdinaryPrice)
	}
	if o.DeliveryType == DeliveryExpress {
		total = total.Add(d.ExpressPrice)
	}
	o.TotalCost = total
}
