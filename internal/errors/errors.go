package errors

import "errors"

var (
	ErrItemCodeNotSet     = errors.New("item_code not found in payload")
	ErrImageCountNotSet   = errors.New("image_count not found in payload")
	ErrImageCountInvalid  = errors.New("failed to parse image count")
	ErrItemSizeInvalid    = errors.New("failed to parse item size")
	ErrRenderTokenMissing = errors.New("render service token is not configured")
)
