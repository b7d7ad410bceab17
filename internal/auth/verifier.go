// Package auth resolves bearer tokens into the tenant and role that scope
// every scenario and run. Three modes: dev tokens for local work, HS256
// shared-secret JWTs, and RS256 JWTs against a JWKS endpoint.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ModeDev  = "dev"
	ModeHMAC = "hmac"
	ModeJWKS = "jwks"
)

var (
	ErrBadToken     = errors.New("auth: malformed token")
	ErrBadSignature = errors.New("auth: signature verification failed")
)

// Principal is the authenticated caller.
type Principal struct {
	Tenant string
	Role   string
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// Verifier checks bearer tokens. Safe for concurrent use.
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	JWKSURL     string
	TenantClaim string
	RoleClaim   string

	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	keyExpiry time.Time
}

// NewVerifierFromEnv builds a verifier from AUTH_* environment variables.
// An unset AUTH_MODE means dev.
func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		mode = ModeDev
	}
	v := &Verifier{
		Mode:        mode,
		HMACSecret:  []byte(os.Getenv("AUTH_HMAC_SECRET")),
		JWKSURL:     os.Getenv("AUTH_JWKS_URL"),
		TenantClaim: "tenant",
		RoleClaim:   "role",
		client:      &http.Client{Timeout: 5 * time.Second},
	}
	if c := os.Getenv("AUTH_TENANT_CLAIM"); c != "" {
		v.TenantClaim = c
	}
	if c := os.Getenv("AUTH_ROLE_CLAIM"); c != "" {
		v.RoleClaim = c
	}
	return v
}

// Verify resolves a bearer token into a principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == ModeDev {
		// dev tokens are plain "tenant:role" pairs
		tenant, role, ok := strings.Cut(token, ":")
		if !ok || tenant == "" || role == "" {
			return Principal{}, fmt.Errorf("%w: dev token must be tenant:role", ErrBadToken)
		}
		return Principal{Tenant: tenant, Role: role}, nil
	}

	tok, err := splitJWT(token)
	if err != nil {
		return Principal{}, err
	}
	switch v.Mode {
	case ModeHMAC:
		err = v.checkHS256(tok)
	case ModeJWKS:
		err = v.checkRS256(tok)
	default:
		err = fmt.Errorf("auth: unknown mode %q", v.Mode)
	}
	if err != nil {
		return Principal{}, err
	}
	return v.principalFromClaims(tok.claims)
}

func (v *Verifier) principalFromClaims(claims map[string]any) (Principal, error) {
	tenant, _ := claims[v.TenantClaim].(string)
	if tenant == "" {
		return Principal{}, fmt.Errorf("auth: token lacks %s claim", v.TenantClaim)
	}
	role, _ := claims[v.RoleClaim].(string)
	if role == "" {
		role = "user"
	}
	return Principal{Tenant: tenant, Role: strings.ToLower(role)}, nil
}

// parsedJWT keeps the signing input alongside the decoded pieces so the
// signature can be checked without re-encoding.
type parsedJWT struct {
	signingInput []byte
	signature    []byte
	alg          string
	kid          string
	claims       map[string]any
}

func splitJWT(token string) (parsedJWT, error) {
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return parsedJWT{}, ErrBadToken
	}
	hdrRaw, err := base64.RawURLEncoding.DecodeString(segs[0])
	if err != nil {
		return parsedJWT{}, fmt.Errorf("%w: header: %v", ErrBadToken, err)
	}
	bodyRaw, err := base64.RawURLEncoding.DecodeString(segs[1])
	if err != nil {
		return parsedJWT{}, fmt.Errorf("%w: payload: %v", ErrBadToken, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(segs[2])
	if err != nil {
		return parsedJWT{}, fmt.Errorf("%w: signature: %v", ErrBadToken, err)
	}
	var hdr struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hdrRaw, &hdr); err != nil {
		return parsedJWT{}, fmt.Errorf("%w: header: %v", ErrBadToken, err)
	}
	var claims map[string]any
	if err := json.Unmarshal(bodyRaw, &claims); err != nil {
		return parsedJWT{}, fmt.Errorf("%w: payload: %v", ErrBadToken, err)
	}
	return parsedJWT{
		signingInput: []byte(segs[0] + "." + segs[1]),
		signature:    sig,
		alg:          hdr.Alg,
		kid:          hdr.Kid,
		claims:       claims,
	}, nil
}

func (v *Verifier) checkHS256(tok parsedJWT) error {
	if tok.alg != "HS256" {
		return fmt.Errorf("auth: hmac mode requires HS256, got %s", tok.alg)
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write(tok.signingInput)
	if !hmac.Equal(mac.Sum(nil), tok.signature) {
		return ErrBadSignature
	}
	return nil
}

func (v *Verifier) checkRS256(tok parsedJWT) error {
	if tok.alg != "RS256" {
		return fmt.Errorf("auth: jwks mode requires RS256, got %s", tok.alg)
	}
	pub, err := v.publicKey(tok.kid)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(tok.signingInput)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], tok.signature); err != nil {
		return ErrBadSignature
	}
	return nil
}

// publicKey returns the cached RSA key for kid, refreshing the JWKS when
// the cache is cold, expired, or missing the kid.
func (v *Verifier) publicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	pub, ok := v.keys[kid]
	fresh := time.Now().Before(v.keyExpiry)
	v.mu.RUnlock()
	if ok && fresh {
		return pub, nil
	}
	if err := v.refreshKeys(); err != nil {
		return nil, err
	}
	v.mu.RLock()
	pub, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("auth: kid %q not in JWKS", kid)
	}
	return pub, nil
}

func (v *Verifier) refreshKeys() error {
	if v.JWKSURL == "" {
		return errors.New("auth: AUTH_JWKS_URL not set")
	}
	resp, err := v.client.Get(v.JWKSURL)
	if err != nil {
		return fmt.Errorf("auth: fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("auth: parse JWKS: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eb {
			e = e<<8 | int(b)
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}
	}
	v.mu.Lock()
	v.keys = keys
	v.keyExpiry = time.Now().Add(10 * time.Minute)
	v.mu.Unlock()
	return nil
}
