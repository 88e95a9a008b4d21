// Package token issues and validates HMAC-signed reviewer tokens. A token
// proves the bearer was issued moderator access for appeal resolution; it
// carries the reviewer id and an issue timestamp, base64-encoded and
// signed with a shared secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

const maxReviewerIDLength = 100

// payload structure for encoding/decoding
type payload struct {
	ReviewerID string `json:"r"`
	TS         int64  `json:"t"`
}

// Generate creates a signed reviewer token.
func Generate(reviewerID string, secret []byte) (string, error) {
	if reviewerID == "" {
		return "", fmt.Errorf("reviewer id required: %w", ErrInvalid)
	}
	if len(reviewerID) > maxReviewerIDLength {
		return "", fmt.Errorf("reviewer id too long (%d chars, max %d): %w", len(reviewerID), maxReviewerIDLength, ErrInvalid)
	}
	pl := payload{ReviewerID: reviewerID, TS: time.Now().Unix()}
	data, err := json.Marshal(pl)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(encoded))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return encoded + "." + sig, nil
}

// Validate checks the token signature and age, returning the reviewer id.
func Validate(tok string, ttl time.Duration, secret []byte) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return "", ErrInvalid
	}
	encoded, sig := parts[0], parts[1]

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(encoded))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", ErrInvalid
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalid
	}
	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return "", ErrInvalid
	}
	if pl.ReviewerID == "" {
		return "", ErrInvalid
	}
	if ttl > 0 && time.Since(time.Unix(pl.TS, 0)) > ttl {
		return "", ErrExpired
	}
	return pl.ReviewerID, nil
}
