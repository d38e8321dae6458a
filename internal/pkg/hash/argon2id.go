package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Hash is the one-way hashing contract used by the verification flows.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}

// Argon2id hashes short secrets with Argon2id and a per-hash random salt.
//
// Parameters are fixed and deliberately expensive: a verify costs real CPU and
// memory, which is the point for six-digit codes. Do not tune them down for
// latency; handlers budget for it.
type Argon2id struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
	pepper      string
}

// NewArgon2id returns an Argon2id hasher. The pepper is a server-side secret
// mixed into every hash so a leaked table alone is not brute-forceable offline.
func NewArgon2id(pepper string) *Argon2id {
	return &Argon2id{
		memory:      64 * 1024, // 64 MiB
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
		pepper:      pepper,
	}
}

// Hash returns the PHC-formatted Argon2id digest of str.
func (a *Argon2id) Hash(str string) ([]byte, error) {
	salt := make([]byte, a.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(str+a.pepper), salt, a.iterations, a.memory, a.parallelism, a.keyLength)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.memory,
		a.iterations,
		a.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	)

	return []byte(encoded), nil
}

// Verify reports whether str matches the PHC-formatted digest. The final
// comparison is constant-time; parse failures of the stored digest simply
// report false.
func (a *Argon2id) Verify(hashed, str string) bool {
	if len(hashed) == 0 || str == "" {
		return false
	}

	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(str+a.pepper), salt, iterations, memory, parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(expected, computed) == 1
}
