package auth

import "time"

// Registered holds the fields every session token carries.
type Registered struct {
	Subject   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is one of AccessClaims, RefreshClaims or VerificationClaims.
type Claims interface {
	Base() Registered
	Kind() Kind
}

type Kind int

const (
	KindAccess Kind = iota + 1
	KindRefresh
	KindVerification
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	case KindVerification:
		return "verification"
	default:
		return "unknown"
	}
}

type AccessClaims struct{ Registered }

func (c AccessClaims) Base() Registered { return c.Registered }
func (AccessClaims) Kind() Kind         { return KindAccess }

type RefreshClaims struct{ Registered }

func (c RefreshClaims) Base() Registered { return c.Registered }
func (RefreshClaims) Kind() Kind         { return KindRefresh }

type VerificationClaims struct{ Registered }

func (c VerificationClaims) Base() Registered { return c.Registered }
func (VerificationClaims) Kind() Kind         { return KindVerification }

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
