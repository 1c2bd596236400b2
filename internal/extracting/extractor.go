package extracting

import "context"

// LineItem is one product entry extracted from a transcript. QuantityKg and
// Price are nil when the speech didn't mention them.
type LineItem struct {
	Name       string   `json:"item"`
	QuantityKg *float64 `json:"quantity_kg"`
	Price      *float64 `json:"price"`
}

// Extractor defines the interface for turning free-form shopping-list text
// into structured line items.
type Extractor interface {
	// ExtractItems parses a transcript into line items
	ExtractItems(ctx context.Context, transcript string) ([]LineItem, error)
	// Close closes the extractor and releases resources
	Close() error
}

// extractPrompt is the shared instruction used by all LLM providers for
// turning messy shopping-list text into structured items.
const extractPrompt = `You are an intelligent assistant that processes unorganized, messy, or free-form grocery or shopping list text and extracts a structured list of items.

For any given input, identify each item mentioned, its corresponding weight (preferably in kilograms or convert from grams if needed), and its price (in rupees or other currency if provided).

Your output must be a structured JSON list with the following keys:
    "item": the name of the product
    "quantity_kg": weight in kilograms (convert units if necessary)
    "price": numeric price value (in INR or specified currency)

If a unit is in grams, convert it to kilograms. If no price is mentioned, return "price": null. If no quantity is given, return "quantity_kg": null.

IMPORTANT: Your response must be a valid JSON array of objects. Do not include any additional text or explanation.`
