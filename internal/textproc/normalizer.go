// Package textproc normalizes free text into the token form used for
// matching: punctuation stripping, script-aware tokenization, stopword
// removal, and stemming of Latin words.
package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

var (
	// punctPattern strips everything except word characters, whitespace, and
	// the CJK unified ideograph range.
	punctPattern = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}]`)
	cjkPattern   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	wordPattern  = regexp.MustCompile(`[a-zA-Z]+`)
)

// Normalizer turns raw text into a canonical token sequence. CJK characters
// become single-character tokens; Latin words are lowercased and stemmed.
// Safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopwords adds words to the built-in English and Chinese stopword sets.
func WithStopwords(words ...string) Option {
	return func(n *Normalizer) {
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				n.stopwords[w] = struct{}{}
			}
		}
	}
}

// NewNormalizer returns a Normalizer with the default stopword sets.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{stopwords: defaultStopwords()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Tokens returns the normalized token sequence for text: CJK characters
// first in occurrence order, then Latin words. Stopwords are removed and
// Latin tokens are stemmed. Returns an empty slice for blank input; never
// fails on malformed input.
func (n *Normalizer) Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cleaned := punctPattern.ReplaceAllString(text, " ")
	cjk := cjkPattern.FindAllString(cleaned, -1)
	latin := latinWords(cleaned)

	out := make([]string, 0, len(cjk)+len(latin))
	for _, tok := range cjk {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	for _, tok := range latin {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		if isASCIIAlpha(tok) {
			tok = porter2.Stem(tok)
		}
		out = append(out, tok)
	}
	return out
}

// Normalize returns the space-joined normalized form of text. Blank input
// yields the empty string.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// latinWords extracts lowercased alphabetic words outside the CJK range.
// Falls back to a bare regexp split if the tokenizer ever panics.
func latinWords(cleaned string) (words []string) {
	defer func() {
		if r := recover(); r != nil {
			words = wordPattern.FindAllString(strings.ToLower(cleaned), -1)
		}
	}()
	lower := strings.ToLower(cleaned)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if isLetterWord(f) {
			words = append(words, f)
		}
	}
	return words
}

// isLetterWord reports whether s is entirely letters with none in the CJK
// range. CJK characters are collected separately.
func isLetterWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
		if r >= 0x4e00 && r <= 0x9fff {
			return false
		}
	}
	return true
}

func isASCIIAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return len(s) > 0
}
