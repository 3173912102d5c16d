package bundle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phdb/image-bundler/internal/errors"
)

// Merchants delimit sizes inside size_zh with full-width or ASCII commas.
const separators = "、，,"

// ItemSize is the optional size payload attached to a bundle request.
type ItemSize struct {
	SizeTable       *SizeTable `json:"size_table"`
	SizeDescription *string    `json:"size_description"`
	SizeZH          string     `json:"size_zh"`
}

// SizeTable is a merchant-entered size chart. Head holds the column
// headers; Body holds one row of cells per size.
type SizeTable struct {
	Head []string   `json:"head"`
	Body [][]string `json:"body"`
}

// ParseItemSize decodes the raw body payload of a bundle request.
func ParseItemSize(raw json.RawMessage) (*ItemSize, error) {
	var size ItemSize
	if err := json.Unmarshal(raw, &size); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrItemSizeInvalid, err)
	}
	return &size, nil
}

// NormalizeSeparators folds size separators to spaces and trims the result.
func NormalizeSeparators(s string) string {
	folded := strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(folded)
}

// TableHeaders derives size-chart column headers from size_zh.
// Runs of separators collapse, so "S、M、、L" yields three headers.
func TableHeaders(sizeZH string) []string {
	return strings.Fields(NormalizeSeparators(sizeZH))
}
