package utils

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000000b2")

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateJWTToken(alice, "secret", time.Hour)
	require.NoError(t, err)

	got, err := ParseJWTToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestTokenRejected(t *testing.T) {
	valid, err := GenerateJWTToken(alice, "secret", time.Hour)
	require.NoError(t, err)

	expired, err := GenerateJWTToken(alice, "secret", -time.Minute)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Address: alice.Hex()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noAddr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": valid,
		"expired":      expired,
		"unsigned":     unsigned,
		"no address":   noAddr,
		"garbage":      "not.a.token",
	} {
		secret := "secret"
		if name == "wrong secret" {
			secret = "other"
		}
		_, err := ParseJWTToken(raw, secret)
		assert.Error(t, err, name)
	}
}
