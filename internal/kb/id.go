package kb

import (
	"crypto/sha256"
	"encoding/hex"
)

const idPrefix = "qa:"

// EntryID returns a stable identifier for a QA pair from its category and
// question. Same category and question always yield the same ID. Used as the
// browse index document ID.
func EntryID(category, question string) string {
	hash := sha256.Sum256([]byte(category + "\x00" + question))
	return idPrefix + hex.EncodeToString(hash[:])
}
