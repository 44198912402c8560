package utils

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(address common.Address, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Address: address.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWTToken verifies the token and returns the caller address it names.
func ParseJWTToken(raw, secret string) (common.Address, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return common.Address{}, errors.Wrap(err, "invalid token")
	}
	if !common.IsHexAddress(claims.Address) {
		return common.Address{}, errors.Errorf("invalid token address %q", claims.Address)
	}

	return common.HexToAddress(claims.Address), nil
}
