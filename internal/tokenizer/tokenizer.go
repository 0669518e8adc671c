// Package tokenizer counts and encodes text with the subword vocabulary the
// segment token budget is calibrated against. The encoding must match the
// remote model's vocabulary, otherwise segment sizing silently drifts from
// the API's real limits.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingName is the fixed tiktoken encoding shared with the remote model.
const EncodingName = "cl100k_base"

// Tokenizer encodes text into subword token IDs and counts them.
type Tokenizer interface {
	// Encode tokenizes text and returns its token IDs.
	Encode(text string) []int
	// Count returns the number of tokens in text.
	Count(text string) int
}

// Tiktoken wraps a loaded tiktoken encoding table. The table is read-only
// after construction, so a single instance may be shared across goroutines.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ Tokenizer = (*Tiktoken)(nil)

// New loads the cl100k_base encoding table.
func New() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(EncodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", EncodingName, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
