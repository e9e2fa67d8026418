package domain

import (
	"encoding/json"
	"fmt"
)

// Category is the closed set of subscription classes. The four vanilla
// categories each carry their own subscriber set; CategoryObject is keyed by
// an object identifier instead.
type Category int

const (
	CategoryKeyBlocks Category = iota
	CategoryMicroBlocks
	CategoryTransactions
	CategoryTxUpdate
	CategoryObject
)

// VanillaCategories lists the fixed categories in declaration order. The
// order is load-bearing for Subscriptions replies.
var VanillaCategories = [...]Category{
	CategoryKeyBlocks,
	CategoryMicroBlocks,
	CategoryTransactions,
	CategoryTxUpdate,
}

// String returns the wire name of the category.
func (c Category) String() string {
	switch c {
	case CategoryKeyBlocks:
		return "KeyBlocks"
	case CategoryMicroBlocks:
		return "MicroBlocks"
	case CategoryTransactions:
		return "Transactions"
	case CategoryTxUpdate:
		return "TxUpdate"
	case CategoryObject:
		return "Object"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// IsVanilla reports whether the category owns a fixed subscriber set.
func (c Category) IsVanilla() bool {
	switch c {
	case CategoryKeyBlocks, CategoryMicroBlocks, CategoryTransactions, CategoryTxUpdate:
		return true
	default:
		return false
	}
}

// ParseCategory maps a wire name to its Category. Unknown names are a decode
// failure, not an open-ended string.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "KeyBlocks":
		return CategoryKeyBlocks, nil
	case "MicroBlocks":
		return CategoryMicroBlocks, nil
	case "Transactions":
		return CategoryTransactions, nil
	case "TxUpdate":
		return CategoryTxUpdate, nil
	case "Object":
		return CategoryObject, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

// Candidate is an event pending broadcast: the category it belongs to plus
// the serialized event body. The body is opaque to the distribution core.
type Candidate struct {
	Category Category        `json:"category"`
	Payload  json.RawMessage `json:"payload"`
}

// NewCandidate creates a candidate for the given category and payload.
func NewCandidate(category Category, payload json.RawMessage) Candidate {
	return Candidate{
		Category: category,
		Payload:  payload,
	}
}
