package account

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
)

var ErrInvalidSignature = errors.New("invalid signature")

// SigHash returns keccak256 of the canonical CBOR encoding of payload.
func SigHash(payload any) ([]byte, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	b, err := enc.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return crypto.Keccak256(b), nil
}

// Sign signs the payload, the signature is in the 65 byte [R || S || V] format.
func (k *AccountKey) Sign(payload any) ([]byte, error) {
	h, err := SigHash(payload)
	if err != nil {
		return nil, err
	}
	priv, err := k.PrivateKey()
	if err != nil {
		return nil, fmt.Errorf("loading private key: %w", err)
	}
	return crypto.Sign(h, priv)
}

// RecoverSigner returns the address of the account which signed payload.
func RecoverSigner(payload any, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	h, err := SigHash(payload)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(h, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
