package entropy

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSeed is returned for seed material that fails the 8-hex-character
// rule after normalization.
var ErrInvalidSeed = errors.New("seed must be exactly 8 hex characters")

// SeedLength is the required seed length in hex characters. The server
// decodes the seed as bytes, so the length must be even.
const SeedLength = 8

var seedPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)

// GenerateSeed returns 8 lowercase hex characters drawn uniformly at random.
func GenerateSeed() (string, error) {
	buf := make([]byte, SeedLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeSeed cleans caller-supplied seed material: trims whitespace,
// lowercases, and strips every non-hex character.
func NormalizeSeed(seed string) string {
	seed = strings.ToLower(strings.TrimSpace(seed))

	var b strings.Builder
	b.Grow(len(seed))
	for _, r := range seed {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateSeed checks the 8-hex-character rule.
func ValidateSeed(seed string) error {
	if !seedPattern.MatchString(seed) {
		return ErrInvalidSeed
	}
	return nil
}
