package culture

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// DomainPopulation separates population digests from any other hash.
const DomainPopulation = "chlamsim/population/v1"

// Digest computes a stable fingerprint of a population.
//
// Format: SHA256(domain + 0x00 + JSON array of records in ascending id
// order). Two runs with the same seed and configuration produce identical
// digests at every tick.
func Digest(pop cell.Population) (string, error) {
	ordered := make([]*cell.State, 0, len(pop))
	for _, id := range pop.IDs() {
		ordered = append(ordered, pop[id])
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainPopulation))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
