package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// TokenManager issues and verifies HS256-signed bearer tokens whose subject is
// the decimal user id.
type TokenManager struct {
	secret   []byte
	validity time.Duration
}

// NewTokenManager builds a manager. The validity window is taken as-is: a zero
// or negative window yields syntactically valid tokens that are already expired.
func NewTokenManager(secret string, validity time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), validity: validity}
}

// Generate builds and signs a token for the user id.
func (tm *TokenManager) Generate(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tm.validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Validate reports whether the token's signature verifies and it has not
// expired. Malformed input yields false, never an error.
func (tm *TokenManager) Validate(tokenStr string) bool {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, tm.keyFunc)
	return err == nil && parsed.Valid
}

// ExtractUserID parses and signature-verifies the token, returning the subject
// as a user id. Any parse, signature, or subject-format failure surfaces as an
// INVALID_TOKEN domain error. Callers that need silent failure must gate on
// Validate first.
func (tm *TokenManager) ExtractUserID(tokenStr string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, tm.keyFunc)
	if err != nil {
		return 0, apperrors.NewInvalidToken(err)
	}
	if !parsed.Valid {
		return 0, apperrors.NewInvalidToken(errors.New("invalid token claims"))
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidToken(err)
	}
	return userID, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tm.secret, nil
}
