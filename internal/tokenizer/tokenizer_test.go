package tokenizer_test

import (
	"testing"

	"github.com/example/go-narrate/internal/testutil"
)

func TestTiktoken_CountMatchesEncode(t *testing.T) {
	tok := testutil.RequireEncoding(t)

	for _, text := range []string{
		"Hello world.",
		"これはペンです。",
		"A. B. C.",
	} {
		ids := tok.Encode(text)
		if len(ids) == 0 {
			t.Errorf("Encode(%q) returned no tokens", text)
		}
		if got := tok.Count(text); got != len(ids) {
			t.Errorf("Count(%q) = %d, want %d", text, got, len(ids))
		}
	}
}

func TestTiktoken_Deterministic(t *testing.T) {
	tok := testutil.RequireEncoding(t)

	const text = "The quick brown fox jumps over the lazy dog."

	first := tok.Encode(text)
	second := tok.Encode(text)
	if len(first) != len(second) {
		t.Fatalf("repeated Encode returned %d then %d tokens", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("token %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}
