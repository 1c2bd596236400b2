package billing

import "github.com/mkrish/voicebill/internal/extracting"

// MergeItems appends extracted line items onto the current cart items. It is
// a pure append: no deduplication, no reconciliation, insertion order kept.
// Unknown quantity or price defaults the cart row to zero so the user can
// fill it in during review; the extracted values themselves are not mutated.
func MergeItems(current []CartItem, extracted []extracting.LineItem) []CartItem {
	merged := make([]CartItem, 0, len(current)+len(extracted))
	merged = append(merged, current...)
	for _, li := range extracted {
		var qty, price float64
		if li.QuantityKg != nil {
			qty = *li.QuantityKg
		}
		if li.Price != nil {
			price = *li.Price
		}
		merged = append(merged, CartItem{
			Name:      li.Name,
			Quantity:  qty,
			UnitPrice: price,
			LineTotal: qty * price,
		})
	}
	return merged
}

// UpdateQuantity sets the quantity of the item at index and recomputes its
// line total. Negative quantities are not rejected here; input constraints
// belong to the UI. Returns false when index is out of range.
func UpdateQuantity(cart *Cart, index int, quantity float64) bool {
	if cart == nil || index < 0 || index >= len(cart.Items) {
		return false
	}
	item := &cart.Items[index]
	item.Quantity = quantity
	item.LineTotal = quantity * item.UnitPrice
	return true
}

// AddItem appends a manually selected item, computing its line total.
func AddItem(cart *Cart, name string, quantity, unitPrice float64) {
	cart.Items = append(cart.Items, CartItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: quantity * unitPrice,
	})
}

// ClearAll empties the cart.
func ClearAll(cart *Cart) {
	cart.Items = nil
}

// GrandTotal sums the line totals of the given items.
func GrandTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal
	}
	return total
}
