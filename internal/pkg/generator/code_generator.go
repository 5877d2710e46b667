package generator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// GenerateSessionCode returns CHK-<owner-hash>-<random>. The owner part is a
// short fingerprint so codes can be grouped in logs without leaking user ids.
func (g *CodeGenerator) GenerateSessionCode(ownerKey string) (string, error) {
	suffix, err := randomHex(8)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("CHK-%s-%s", fingerprint(ownerKey), suffix), nil
}

func (g *CodeGenerator) GeneratePaymentIntentID() (string, error) {
	suffix, err := randomHex(10)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("PI-%s", suffix), nil
}

func randomHex(n int) (string, error) {
	randomBytes := make([]byte, n)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

func fingerprint(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%06x", h.Sum32()&0xffffff)
}
