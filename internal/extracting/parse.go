package extracting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotArray means the model answered with syntactically valid content that
// is not a JSON array of items. Callers distinguish this from transport or
// JSON syntax failures so the UI can render a different message.
var ErrNotArray = errors.New("response is not a JSON array")

// ParseLineItems parses an LLM response into line items. Models routinely
// wrap their output in markdown code fences or leading whitespace, so those
// are stripped before parsing.
func ParseLineItems(text string) ([]LineItem, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	elements, ok := raw.([]any)
	if !ok {
		return nil, ErrNotArray
	}

	items := make([]LineItem, 0, len(elements))
	for _, element := range elements {
		fields, ok := element.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element is not an object", ErrNotArray)
		}
		items = append(items, LineItem{
			Name:       coerceString(fields["item"]),
			QuantityKg: coerceNumber(fields["quantity_kg"]),
			Price:      coerceNumber(fields["price"]),
		})
	}
	return items, nil
}

// coerceString renders any value as a string, empty when absent
func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return fmt.Sprint(v)
	}
}

// coerceNumber maps null/absent to nil. Non-numeric strings also map to nil
// rather than failing the whole extraction: an unparseable quantity means
// the user never said one.
func coerceNumber(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
