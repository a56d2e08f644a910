package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/mcoot/stockgame/internal/model"
)

// Token layout: "v1.<payload>.<signature>". The payload is the base64url
// JSON claims, and the signature is HMAC-SHA256 over "v1.<payload>".
// Both parts decode strictly, so every token string has exactly one
// accepted spelling.
const tokenVersion = "v1"

var encoding = base64.RawURLEncoding.Strict()

type claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"` // unix nanoseconds
	ExpiresAt int64  `json:"exp"` // unix nanoseconds
}

func sign(key []byte, input string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}

func encodeToken(key []byte, c claims) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	input := tokenVersion + "." + encoding.EncodeToString(payload)
	return input + "." + encoding.EncodeToString(sign(key, input)), nil
}

// decodeToken verifies the signature and returns the claims. Expiry is
// left to the caller.
func decodeToken(key []byte, token string) (claims, error) {
	if token == "" {
		return claims{}, model.ErrTokenMissing
	}

	lastDot := strings.LastIndexByte(token, '.')
	if lastDot < 0 {
		return claims{}, model.ErrTokenInvalid
	}
	input, sigPart := token[:lastDot], token[lastDot+1:]

	version, payloadPart, ok := strings.Cut(input, ".")
	if !ok || version != tokenVersion || strings.Contains(payloadPart, ".") {
		return claims{}, model.ErrTokenInvalid
	}

	sig, err := encoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, sign(key, input)) {
		return claims{}, model.ErrTokenInvalid
	}

	payload, err := encoding.DecodeString(payloadPart)
	if err != nil {
		return claims{}, model.ErrTokenInvalid
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil || c.Subject == "" || c.ExpiresAt <= c.IssuedAt {
		return claims{}, model.ErrTokenInvalid
	}
	return c, nil
}

func (c claims) issuedAt() time.Time {
	return time.Unix(0, c.IssuedAt).UTC()
}

func (c claims) expiresAt() time.Time {
	return time.Unix(0, c.ExpiresAt).UTC()
}
