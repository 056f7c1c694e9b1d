package usecase

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mensajemagico/internal/domain"
)

// ContextWords collects the free-text words that steer a generation. Each
// word is screened by the content filter as it is added, and the set never
// grows past its limit. Not safe for concurrent use.
type ContextWords struct {
	max    int
	filter domain.ContentFilter
	words  []string
}

// NewContextWords creates an empty collector. A nil filter accepts every word.
func NewContextWords(limit int, filter domain.ContentFilter) *ContextWords {
	if limit <= 0 {
		limit = defaultMaxContextWords
	}
	return &ContextWords{max: limit, filter: filter}
}

// Add appends word after trimming it. Adding a word already present
// (ignoring case) is a no-op.
func (c *ContextWords) Add(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return domain.NewDomainError("ContextWords.Add", domain.ErrMissingField, "empty context word")
	}
	if c.filter != nil && c.filter.IsOffensive(word) {
		return domain.NewDomainError("ContextWords.Add", domain.ErrOffensiveContent, strconv.Quote(word))
	}
	if c.contains(word) {
		return nil
	}
	if len(c.words) >= c.max {
		return domain.NewDomainError("ContextWords.Add", domain.ErrTooManyContextWords, fmt.Sprintf("at most %d", c.max))
	}
	c.words = append(c.words, word)
	return nil
}

// Remove deletes word (ignoring case) and reports whether it was present.
func (c *ContextWords) Remove(word string) bool {
	word = strings.TrimSpace(word)
	for i, w := range c.words {
		if strings.EqualFold(w, word) {
			c.words = slices.Delete(c.words, i, i+1)
			return true
		}
	}
	return false
}

// Words returns a copy of the collected words in insertion order.
func (c *ContextWords) Words() []string {
	return slices.Clone(c.words)
}

// Len returns the number of collected words.
func (c *ContextWords) Len() int { return len(c.words) }

func (c *ContextWords) contains(word string) bool {
	return slices.ContainsFunc(c.words, func(w string) bool { return strings.EqualFold(w, word) })
}
