package types

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
)

// WeiPerEther is the number of base units in one unit of the native asset.
var WeiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var ErrInvalidAmount = errors.New("invalid amount")

// plain decimal notation only, big.Rat would also take fractions and exponents
var decimalAmount = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

/*
ParseEther converts decimal string in ether units (ie "0.0001") into wei.
Amounts with more than 18 decimals, negative amounts and amounts which do not
fit into 256 bits are rejected.
*/
func ParseEther(s string) (*uint256.Int, error) {
	d := strings.TrimSpace(s)
	if strings.HasPrefix(d, "-") {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	if !decimalAmount.MatchString(d) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	d = strings.TrimSuffix(d, ".")
	if strings.HasPrefix(d, ".") {
		d = "0" + d
	}
	r, ok := new(big.Rat).SetString(d)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(WeiPerEther))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}
	v, overflow := uint256.FromBig(r.Num())
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows 256 bits", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatEther renders wei amount in ether units without trailing zeros.
func FormatEther(v *uint256.Int) string {
	if v == nil || v.IsZero() {
		return "0"
	}
	s := new(big.Rat).SetFrac(v.ToBig(), WeiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParseWei parses base 10 string of wei.
func ParseWei(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base 10 integer", ErrInvalidAmount, s)
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows 256 bits", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatWei renders v as base 10 string, nil is rendered as "0".
func FormatWei(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.ToBig().String()
}
