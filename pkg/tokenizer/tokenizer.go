package tokenizer

import "strings"

// EstimateTokens returns a rough whitespace-based token count. The stored
// count is a display/sizing proxy, not exact tokenizer output.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
