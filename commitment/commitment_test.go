package commitment

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/types"
)

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("")
	require.NoError(t, err)
	require.Equal(t, Keccak256, s)

	s, err = ParseScheme("BLAKE3")
	require.NoError(t, err)
	require.Equal(t, Blake3, s)

	s, err = ParseScheme("mimc")
	require.NoError(t, err)
	require.Equal(t, MiMC, s)

	_, err = ParseScheme("sha1")
	require.ErrorIs(t, err, ErrUnknownScheme)
	require.ErrorContains(t, err, `"sha1"`)
}

func TestNewSecret(t *testing.T) {
	for _, s := range Schemes() {
		a, err := NewSecret(s)
		require.NoError(t, err)
		require.Len(t, a, SecretSize)
		b, err := NewSecret(s)
		require.NoError(t, err)
		require.False(t, bytes.Equal(a, b), s)
	}
	t.Run("mimc secrets are field elements", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			secret, err := NewSecret(MiMC)
			require.NoError(t, err)
			_, err = Compute(MiMC, secret)
			require.NoError(t, err)
		}
	})
}

func TestCompute(t *testing.T) {
	t.Run("keccak256 known value", func(t *testing.T) {
		c, err := Compute(Keccak256, []byte("abc"))
		require.NoError(t, err)
		require.Equal(t, "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", c.String())
	})
	t.Run("blake3 known value", func(t *testing.T) {
		c, err := Compute(Blake3, []byte("abc"))
		require.NoError(t, err)
		require.Equal(t, "0x6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85", c.String())
	})
	t.Run("sha3-256 known value", func(t *testing.T) {
		c, err := Compute(SHA3, []byte("abc"))
		require.NoError(t, err)
		require.Equal(t, "0x3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532", c.String())
	})
	t.Run("schemes differ and are deterministic", func(t *testing.T) {
		secret := hexutil.MustDecode("0x0fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
		seen := map[types.Commitment]Scheme{}
		for _, s := range Schemes() {
			c1, err := Compute(s, secret)
			require.NoError(t, err, s)
			c2, err := Compute(s, secret)
			require.NoError(t, err, s)
			require.Equal(t, c1, c2, s)
			require.NotEqual(t, types.Commitment{}, c1, s)
			_, dup := seen[c1]
			require.False(t, dup, s)
			seen[c1] = s
		}
	})
	t.Run("mimc secret outside the field", func(t *testing.T) {
		x := big.NewInt(12345)
		c, err := Compute(MiMC, x.Bytes())
		require.NoError(t, err)

		// x+p reduces to the same field element and must not open c
		wrapped := new(big.Int).Add(x, fr.Modulus())
		_, err = Compute(MiMC, wrapped.Bytes())
		require.ErrorIs(t, err, ErrSecretRange)
		require.False(t, Verify(MiMC, wrapped.Bytes(), c))
		require.True(t, Verify(MiMC, x.Bytes(), c))

		_, err = Compute(MiMC, fr.Modulus().Bytes())
		require.ErrorIs(t, err, ErrSecretRange)
		max := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
		_, err = Compute(MiMC, max.Bytes())
		require.NoError(t, err)
	})
	t.Run("empty secret", func(t *testing.T) {
		_, err := Compute(Keccak256, nil)
		require.ErrorIs(t, err, ErrEmptySecret)
	})
	t.Run("unknown scheme", func(t *testing.T) {
		_, err := Compute("md5", []byte{1})
		require.ErrorIs(t, err, ErrUnknownScheme)
	})
}

func TestVerify(t *testing.T) {
	for _, s := range Schemes() {
		secret, err := NewSecret(s)
		require.NoError(t, err)
		c, err := Compute(s, secret)
		require.NoError(t, err)
		require.True(t, Verify(s, secret, c), s)
		require.False(t, Verify(s, append(secret, 0), c), s)
	}
	require.False(t, Verify("nope", []byte{1}, types.Commitment{}))
}
