package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mroshb/lid_lottery/pkg/utils"
)

// NonceBytes is the amount of randomness carried by every coupon token.
const NonceBytes = 8

// Strict decoding rejects non-zero trailing bits, so two different token
// strings can never decode to the same signature.
var tokenEncoding = base64.RawURLEncoding.Strict()

// CouponClaims is the signed payload of a coupon token. Fields are declared
// in key order so the JSON encoding is canonical.
type CouponClaims struct {
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Lid   string `json:"lid"`
	Nonce string `json:"nonce"`
}

// NewCouponClaims builds the claims for a coupon issued now for code.
func NewCouponClaims(code string, now time.Time, ttl time.Duration) (CouponClaims, error) {
	nonce, err := utils.RandomHex(NonceBytes)
	if err != nil {
		return CouponClaims{}, fmt.Errorf("generate nonce: %w", err)
	}
	issued := now.Unix()
	return CouponClaims{
		Exp:   issued + int64(ttl/time.Second),
		Iat:   issued,
		Lid:   code,
		Nonce: nonce,
	}, nil
}

func (c CouponClaims) IssuedAt() time.Time {
	return time.Unix(c.Iat, 0).UTC()
}

func (c CouponClaims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0).UTC()
}

// ExpiredAt reports whether the claims are expired at now. A token whose
// exp equals the current second is already expired.
func (c CouponClaims) ExpiredAt(now time.Time) bool {
	return now.Unix() >= c.Exp
}

// CouponCodec mints and verifies coupon tokens of the form
// base64url(payload) "." base64url(HMAC-SHA256(secret, base64url(payload))).
type CouponCodec struct {
	secret []byte
}

func NewCouponCodec(secret []byte) (*CouponCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("coupon secret is empty")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &CouponCodec{secret: key}, nil
}

// Mint serializes and signs claims.
func (c *CouponCodec) Mint(claims CouponClaims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	segment := tokenEncoding.EncodeToString(payload)
	sig, err := jwt.SigningMethodHS256.Sign(segment, c.secret)
	if err != nil {
		return "", fmt.Errorf("sign claims: %w", err)
	}

	return segment + "." + tokenEncoding.EncodeToString(sig), nil
}

// Verify checks the token signature and returns its claims. Any malformed,
// tampered or foreign token yields ok == false. Expiry is not checked here.
func (c *CouponCodec) Verify(token string) (claims CouponClaims, ok bool) {
	segment, sigPart, found := strings.Cut(token, ".")
	if !found || segment == "" || strings.Contains(sigPart, ".") {
		return CouponClaims{}, false
	}

	sig, err := tokenEncoding.DecodeString(sigPart)
	if err != nil {
		return CouponClaims{}, false
	}
	if err := jwt.SigningMethodHS256.Verify(segment, sig, c.secret); err != nil {
		return CouponClaims{}, false
	}

	payload, err := tokenEncoding.DecodeString(segment)
	if err != nil {
		return CouponClaims{}, false
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return CouponClaims{}, false
	}
	return claims, true
}
