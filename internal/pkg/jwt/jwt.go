package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// FileClaims authorizes the download of exactly one stored artifact.
type FileClaims struct {
	FileKey string `json:"file_key"`
	jwtlib.RegisteredClaims
}

func GenerateFileToken(fileKey string, secret []byte, ttl time.Duration) (string, error) {
	if fileKey == "" {
		return "", errors.New("file key is required")
	}
	now := time.Now()
	claims := FileClaims{
		FileKey: fileKey,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseFileToken(tokenString string, secret []byte) (*FileClaims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &FileClaims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*FileClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// VerifyFileToken checks the token and that it was issued for fileKey.
func VerifyFileToken(tokenString, fileKey string, secret []byte) error {
	claims, err := ParseFileToken(tokenString, secret)
	if err != nil {
		return err
	}
	if claims.FileKey != fileKey {
		return errors.New("token does not match file")
	}
	return nil
}
