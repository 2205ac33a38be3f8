// Package vocab maps normalized tokens to the integer index space consumed
// by the similarity model.
package vocab

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Reserved vocabulary slots. Index 0 pads sequences to fixed length; index 1
// stands in for tokens outside the vocabulary.
const (
	PadToken = "<PAD>"
	UnkToken = "<UNK>"
	PadIndex = 0
	UnkIndex = 1
)

// Vocabulary is a frozen token-to-index mapping with reserved PAD and UNK
// entries. Fields are exported so the whole table round-trips through gob.
type Vocabulary struct {
	TokenToIndex map[string]int
	IndexToToken map[int]string
	Counts       map[string]int
}

// New returns a vocabulary containing only the PAD and UNK entries.
func New() *Vocabulary {
	return &Vocabulary{
		TokenToIndex: map[string]int{PadToken: PadIndex, UnkToken: UnkIndex},
		IndexToToken: map[int]string{PadIndex: PadToken, UnkIndex: UnkToken},
		Counts:       make(map[string]int),
	}
}

// Build counts tokens across all sequences and assigns indices starting at 2
// in first-seen order to every token occurring at least minFreq times.
// A minFreq below 1 is treated as 1.
func Build(sequences [][]string, minFreq int) *Vocabulary {
	v := New()
	var order []string
	for _, seq := range sequences {
		for _, tok := range seq {
			if tok == "" {
				continue
			}
			if v.Counts[tok] == 0 {
				order = append(order, tok)
			}
			v.Counts[tok]++
		}
	}
	if minFreq < 1 {
		minFreq = 1
	}
	for _, tok := range order {
		if v.Counts[tok] < minFreq {
			continue
		}
		if _, exists := v.TokenToIndex[tok]; exists {
			continue
		}
		idx := len(v.TokenToIndex)
		v.TokenToIndex[tok] = idx
		v.IndexToToken[idx] = tok
	}
	return v
}

// Size returns the number of vocabulary entries including PAD and UNK.
func (v *Vocabulary) Size() int {
	return len(v.TokenToIndex)
}

// Encode maps tokens to indices, substituting UNK for unknown tokens, then
// truncates or right-pads with PAD to exactly maxLen indices.
func (v *Vocabulary) Encode(tokens []string, maxLen int) []int {
	if maxLen < 1 {
		return nil
	}
	ids := make([]int, 0, maxLen)
	for _, tok := range tokens {
		if len(ids) == maxLen {
			break
		}
		idx, ok := v.TokenToIndex[tok]
		if !ok {
			idx = UnkIndex
		}
		ids = append(ids, idx)
	}
	for len(ids) < maxLen {
		ids = append(ids, PadIndex)
	}
	return ids
}

// Decode maps indices back to tokens for diagnostics. Unknown indices decode
// to UNK.
func (v *Vocabulary) Decode(ids []int) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := v.IndexToToken[id]
		if !ok {
			tok = UnkToken
		}
		tokens[i] = tok
	}
	return tokens
}

// Save writes the vocabulary to path as gob. The write is atomic: a temp
// file in the same directory is renamed over the target.
func (v *Vocabulary) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create vocabulary dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vocab-*")
	if err != nil {
		return fmt.Errorf("create temp vocabulary file: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp vocabulary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace vocabulary file: %w", err)
	}
	return nil
}

// Load reads a vocabulary previously written by Save.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()
	v := New()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if v.Size() < 2 {
		return nil, fmt.Errorf("vocabulary at %s is missing reserved entries", path)
	}
	return v, nil
}
