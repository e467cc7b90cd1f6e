/*
Package commitment builds depositor commitments: a random secret kept off the
ledger and its digest H(secret) which is submitted with the deposit.
*/
package commitment

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/cosmicpool/cosmicpool/types"
)

const SecretSize = 32

type Scheme string

const (
	Keccak256 Scheme = "keccak256"
	Blake3    Scheme = "blake3"
	SHA3      Scheme = "sha3-256"
	// MiMC over the BN254 scalar field. The secret must be the big-endian
	// encoding of a field element, values not below the modulus are rejected
	// so that every commitment has exactly one opening.
	MiMC Scheme = "mimc"

	DefaultScheme = Keccak256
)

var (
	ErrUnknownScheme = errors.New("unknown commitment scheme")
	ErrEmptySecret   = errors.New("secret is empty")
	ErrSecretRange   = errors.New("secret is not a field element")
)

func Schemes() []Scheme {
	return []Scheme{Keccak256, Blake3, SHA3, MiMC}
}

func ParseScheme(s string) (Scheme, error) {
	if s == "" {
		return DefaultScheme, nil
	}
	for _, sc := range Schemes() {
		if strings.EqualFold(s, string(sc)) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownScheme, s)
}

// NewSecret returns SecretSize bytes from the system CSPRNG which are a valid
// secret for the scheme.
func NewSecret(scheme Scheme) ([]byte, error) {
	if scheme == MiMC {
		var e fr.Element
		if _, err := e.SetRandom(); err != nil {
			return nil, fmt.Errorf("reading random secret: %w", err)
		}
		b := e.Bytes()
		return b[:], nil
	}
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("reading random secret: %w", err)
	}
	return secret, nil
}

// Compute returns H(secret) using the given scheme.
func Compute(scheme Scheme, secret []byte) (types.Commitment, error) {
	if len(secret) == 0 {
		return types.Commitment{}, ErrEmptySecret
	}
	switch scheme {
	case Keccak256:
		return types.Commitment(crypto.Keccak256Hash(secret)), nil
	case Blake3:
		return types.Commitment(blake3.Sum256(secret)), nil
	case SHA3:
		return types.Commitment(sha3.Sum256(secret)), nil
	case MiMC:
		return mimcDigest(secret)
	default:
		return types.Commitment{}, fmt.Errorf("%w %q", ErrUnknownScheme, scheme)
	}
}

// Verify reports whether commitment c opens to secret under the scheme.
func Verify(scheme Scheme, secret []byte, c types.Commitment) bool {
	got, err := Compute(scheme, secret)
	if err != nil {
		return false
	}
	return got == c
}

func mimcDigest(secret []byte) (types.Commitment, error) {
	v := new(big.Int).SetBytes(secret)
	if v.Cmp(fr.Modulus()) >= 0 {
		return types.Commitment{}, fmt.Errorf("%w: value exceeds the bn254 scalar field", ErrSecretRange)
	}
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	h := mimc.NewMiMC()
	if _, err := h.Write(b[:]); err != nil {
		return types.Commitment{}, fmt.Errorf("mimc write: %w", err)
	}
	return types.NewCommitment(h.Sum(nil))
}
