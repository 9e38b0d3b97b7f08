package extract

import "fmt"

// Category classifies why a document could not be read.
type Category string

const (
	CategoryEncrypted Category = "encrypted"
	CategoryTruncated Category = "truncated"
	CategoryMalformed Category = "malformed"
)

// UnreadableDocumentError reports a document whose format was recognized but
// whose contents could not be parsed.
type UnreadableDocumentError struct {
	Category Category
	Err      error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("extract: unreadable document (%s): %v", e.Category, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() error { return e.Err }

func unreadable(c Category, err error) error {
	return &UnreadableDocumentError{Category: c, Err: err}
}
