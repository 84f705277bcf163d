package engine

import (
	"regexp"
	"sync"
)

// urlPattern matches scheme://non-whitespace runs. Lazily compiled on first
// use to reduce startup overhead.
var urlPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`https?://[^\s]+`)
})

// ExtractURLs returns every URL-shaped substring of text in order of first
// appearance, without deduplication. Empty or URL-free input yields nil.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern().FindAllString(text, -1)
}
