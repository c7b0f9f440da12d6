package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	domainauth "github.com/NordCoder/Quill/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
)

var _ domainauth.TokenCodec = (*Codec)(nil)

type TokenConfig struct {
	Secret    []byte
	Algorithm string
	Now       func() time.Time
}

type Codec struct {
	secret []byte
	method jwt.SigningMethod
	parser *jwt.Parser
	now    func() time.Time
}

type wireClaims struct {
	jwt.RegisteredClaims
	Refresh bool `json:"refresh,omitempty"`
	Verify  bool `json:"verify,omitempty"`
}

func NewCodec(cfg TokenConfig) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token codec: empty signing secret")
	}
	if cfg.Algorithm == "" {
		return nil, errors.New("token codec: empty signing algorithm")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", cfg.Algorithm)
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Codec{
		secret: cfg.Secret,
		method: method,
		now:    cfg.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
		),
	}, nil
}

func (c *Codec) Issue(cl domainauth.Claims, ttl time.Duration) (string, error) {
	if cl == nil {
		return "", errors.New("issue token: nil claims")
	}
	now := c.now()
	wc := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(cl.Base().Subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	switch cl.Kind() {
	case domainauth.KindAccess:
	case domainauth.KindRefresh:
		wc.Refresh = true
	case domainauth.KindVerification:
		wc.Verify = true
	default:
		return "", fmt.Errorf("issue token: unknown kind %d", cl.Kind())
	}

	signed, err := jwt.NewWithClaims(c.method, wc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", cl.Kind(), err)
	}
	return signed, nil
}

// Verify checks signature and algorithm, then expiry, then decodes the variant.
func (c *Codec) Verify(token string) (domainauth.Claims, error) {
	var wc wireClaims
	_, err := c.parser.ParseWithClaims(token, &wc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenSignature
	default:
		return nil, ErrTokenMalformed
	}

	sub, err := strconv.ParseInt(wc.Subject, 10, 64)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	base := domainauth.Registered{Subject: sub}
	if wc.IssuedAt != nil {
		base.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		base.ExpiresAt = wc.ExpiresAt.Time
	}

	switch {
	case wc.Refresh && wc.Verify:
		return nil, ErrTokenMalformed
	case wc.Refresh:
		return domainauth.RefreshClaims{Registered: base}, nil
	case wc.Verify:
		return domainauth.VerificationClaims{Registered: base}, nil
	default:
		return domainauth.AccessClaims{Registered: base}, nil
	}
}
