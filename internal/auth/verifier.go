package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// clockSkew is tolerated on exp and nbf.
const clockSkew = time.Minute

// Verifier validates bearer tokens and extracts the user id from "sub".
// A secret verifier accepts HS256 tokens signed with a shared key; a JWKS
// verifier accepts RS256 tokens signed by the identity provider.
type Verifier struct {
	jwks     *keyfunc.JWKS
	secret   []byte
	audience string
	issuer   string
	now      func() time.Time
}

// NewSecretVerifier accepts HS256 tokens signed with secret.
func NewSecretVerifier(secret []byte, audience, issuer string) *Verifier {
	return &Verifier{secret: secret, audience: audience, issuer: issuer, now: time.Now}
}

// NewJWKSVerifier accepts RS256 tokens whose key is found in jwks.
func NewJWKSVerifier(jwks *keyfunc.JWKS, audience, issuer string) *Verifier {
	return &Verifier{jwks: jwks, audience: audience, issuer: issuer, now: time.Now}
}

// FetchJWKS downloads the provider's key set and keeps it refreshed in the
// background until Close is called on the returned verifier.
func FetchJWKS(url, audience, issuer string) (*Verifier, error) {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return NewJWKSVerifier(jwks, audience, issuer), nil
}

// Close stops background key refreshes.
func (v *Verifier) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// UserIDFromAuthHeader verifies a "Bearer <token>" header value.
func (v *Verifier) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", ErrMissingHeader
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrBadHeader
	}
	return v.Verify(parts[1])
}

// Verify checks the token and returns its subject.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	if v == nil || (v.jwks == nil && v.secret == nil) {
		return "", ErrNoVerifier
	}
	tokenStr = strings.TrimSpace(tokenStr)
	if strings.Count(tokenStr, ".") != 2 {
		return "", ErrBadHeader
	}

	var (
		parser *jwt.Parser
		keys   jwt.Keyfunc
	)
	if v.secret != nil {
		parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
		keys = func(*jwt.Token) (interface{}, error) { return v.secret, nil }
	} else {
		parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
		keys = v.jwks.Keyfunc
	}

	token, err := parser.Parse(tokenStr, keys)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	if err := v.checkClaims(claims); err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

func (v *Verifier) checkClaims(claims jwt.MapClaims) error {
	now := v.now()
	if !claims.VerifyExpiresAt(now.Add(-clockSkew).Unix(), v.jwks != nil) {
		return fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if !claims.VerifyNotBefore(now.Add(clockSkew).Unix(), false) {
		return fmt.Errorf("%w: token not valid yet", ErrInvalidToken)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}
	return nil
}

// Sign issues an HS256 token for sub. Only secret verifiers can sign; local
// setups use it to mint tokens for the CLI and the HTTP API.
func (v *Verifier) Sign(sub string, ttl time.Duration) (string, error) {
	if v == nil || v.secret == nil {
		return "", errors.New("signing requires a shared secret")
	}
	now := v.now()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if v.audience != "" {
		claims["aud"] = v.audience
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
