package services

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Pseudonymizer derives a stable patient key from the patient's name with a
// keyed BLAKE2b hash, so exports can be joined per patient without the name.
type Pseudonymizer struct {
	key []byte
}

func NewPseudonymizer(key []byte) (*Pseudonymizer, error) {
	if len(key) == 0 {
		return nil, errors.New("pseudonym key required")
	}
	if len(key) > blake2b.Size {
		return nil, errors.New("pseudonym key longer than 64 bytes")
	}
	return &Pseudonymizer{key: append([]byte(nil), key...)}, nil
}

// Key returns a 32 hex character key, or "" when the patient has no name.
func (p *Pseudonymizer) Key(pt Patient) string {
	last := normalizeName(pt.LastName)
	first := normalizeName(pt.FirstName)
	if last == "" && first == "" {
		return ""
	}
	h, err := blake2b.New256(p.key)
	if err != nil {
		return ""
	}
	h.Write([]byte(last))
	h.Write([]byte{0})
	h.Write([]byte(first))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
