package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CommitmentSize is the width of a commitment digest in bytes.
const CommitmentSize = 32

var ErrInvalidCommitment = errors.New("invalid commitment")

/*
Commitment is a digest supplied by the depositor, usually H(secret). The
ledger never interprets the value, it is only compared for equality and
used as a lookup key.
*/
type Commitment [CommitmentSize]byte

// NewCommitment copies b into a Commitment, b must be exactly CommitmentSize bytes.
func NewCommitment(b []byte) (Commitment, error) {
	var c Commitment
	if len(b) != CommitmentSize {
		return c, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCommitment, CommitmentSize, len(b))
	}
	copy(c[:], b)
	return c, nil
}

// ParseCommitment decodes 0x prefixed hex string into a Commitment.
func ParseCommitment(s string) (Commitment, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Commitment{}, fmt.Errorf("%w: %w", ErrInvalidCommitment, err)
	}
	return NewCommitment(b)
}

func (c Commitment) Bytes() []byte {
	return bytes.Clone(c[:])
}

func (c Commitment) String() string {
	return hexutil.Encode(c[:])
}

func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Commitment) UnmarshalText(src []byte) error {
	res, err := ParseCommitment(string(src))
	if err != nil {
		return err
	}
	*c = res
	return nil
}
