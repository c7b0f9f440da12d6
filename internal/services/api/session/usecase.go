package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	authcore "github.com/NordCoder/Quill/internal/auth"
	domainauth "github.com/NordCoder/Quill/internal/domain/auth"
	"github.com/NordCoder/Quill/internal/domain/notification"
	"github.com/NordCoder/Quill/internal/domain/user"

	"go.uber.org/zap"
)

const (
	DefaultAccessTTL       = 20 * time.Minute
	DefaultRefreshTTL      = 30 * 24 * time.Hour
	DefaultVerificationTTL = time.Hour
	defaultNotifyTimeout   = 10 * time.Second
)

// dummyPassword is hashed once so that logins for unknown usernames cost
// the same bcrypt comparison as logins with a wrong password.
const dummyPassword = "quill-login-timing-equalizer"

type Config struct {
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	VerifyBaseURL   string
	NotifyTimeout   time.Duration
}

type Usecase struct {
	users    user.Repo
	hasher   domainauth.PasswordHasher
	tokens   domainauth.TokenCodec
	notifier notification.Notifier
	log      *zap.Logger
	cfg      Config

	dummyHash string
	pending   sync.WaitGroup
}

func NewUseCase(
	users user.Repo,
	hasher domainauth.PasswordHasher,
	tokens domainauth.TokenCodec,
	notifier notification.Notifier,
	log *zap.Logger,
	cfg Config,
) *Usecase {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Warn("dummy hash unavailable; unknown-user logins will be faster", zap.Error(err))
	}
	return &Usecase{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		log:       log.With(zap.String("component", "session")),
		cfg:       cfg,
		dummyHash: dummy,
	}
}

func (u *Usecase) Register(ctx context.Context, username, password, email string) (*user.User, error) {
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	newUser := &user.User{Username: username, Email: email, PasswordHash: hash}
	if err := u.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, authcore.ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := u.tokens.Issue(domainauth.VerificationClaims{
		Registered: domainauth.Registered{Subject: newUser.ID},
	}, u.cfg.VerificationTTL)
	if err != nil {
		// the account exists; a missing link is handled like a lost email
		u.log.Error("issue verification token", zap.Int64("user_id", newUser.ID), zap.Error(err))
		return newUser, nil
	}

	u.notifyAsync(ctx, newUser.ID, newUser.Email, u.verificationLink(token))
	return newUser, nil
}

func (u *Usecase) Login(ctx context.Context, username, password string) (domainauth.TokenPair, error) {
	rec, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			u.hasher.Verify(password, u.dummyHash)
			return domainauth.TokenPair{}, authcore.ErrInvalidCredentials
		}
		return domainauth.TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if !u.hasher.Verify(password, rec.PasswordHash) {
		return domainauth.TokenPair{}, authcore.ErrInvalidCredentials
	}

	sub := domainauth.Registered{Subject: rec.ID}
	access, err := u.tokens.Issue(domainauth.AccessClaims{Registered: sub}, u.cfg.AccessTTL)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("sign access: %w", err)
	}
	refresh, err := u.tokens.Issue(domainauth.RefreshClaims{Registered: sub}, u.cfg.RefreshTTL)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("sign refresh: %w", err)
	}
	return domainauth.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh does not consult the user store: a refresh token stays usable
// until it expires even if its subject is gone.
func (u *Usecase) Refresh(_ context.Context, refreshToken string) (string, error) {
	cl, err := u.verify(refreshToken)
	if err != nil {
		return "", err
	}
	if cl.Kind() != domainauth.KindRefresh {
		return "", authcore.ErrRoleMismatch
	}

	access, err := u.tokens.Issue(domainauth.AccessClaims{
		Registered: domainauth.Registered{Subject: cl.Base().Subject},
	}, u.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access: %w", err)
	}
	return access, nil
}

func (u *Usecase) ResolveCurrentUser(ctx context.Context, accessToken string) (*user.User, error) {
	id, err := u.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, authcore.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return rec, nil
}

// ParseAccess resolves an access token to its subject without touching the store.
func (u *Usecase) ParseAccess(accessToken string) (int64, error) {
	cl, err := u.verify(accessToken)
	if err != nil {
		return 0, err
	}
	if cl.Kind() != domainauth.KindAccess {
		return 0, authcore.ErrRoleMismatch
	}
	return cl.Base().Subject, nil
}

// VerifyEmail is idempotent: an already verified user is returned unchanged.
func (u *Usecase) VerifyEmail(ctx context.Context, verificationToken string) (*user.User, error) {
	cl, err := u.verify(verificationToken)
	if err != nil {
		return nil, err
	}
	if cl.Kind() != domainauth.KindVerification {
		return nil, authcore.ErrInvalidToken
	}
	id := cl.Base().Subject

	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, authcore.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if rec.Verified {
		return rec, nil
	}

	rec, err = u.users.MarkVerified(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, authcore.ErrInvalidToken
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	u.log.Info("email verified", zap.Int64("user_id", id))
	return rec, nil
}

// Wait blocks until in-flight verification notifications finish.
func (u *Usecase) Wait() { u.pending.Wait() }

func (u *Usecase) verify(token string) (domainauth.Claims, error) {
	cl, err := u.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, authcore.ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrInvalidToken, err)
	}
	return cl, nil
}

func (u *Usecase) verificationLink(token string) string {
	base, err := url.Parse(u.cfg.VerifyBaseURL)
	if err != nil {
		return u.cfg.VerifyBaseURL + "?token=" + url.QueryEscape(token)
	}
	q := base.Query()
	q.Set("token", token)
	base.RawQuery = q.Encode()
	return base.String()
}

func (u *Usecase) notifyAsync(ctx context.Context, userID int64, email, link string) {
	if u.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	u.pending.Add(1)
	go func() {
		defer u.pending.Done()
		nctx, cancel := context.WithTimeout(detached, u.cfg.NotifyTimeout)
		defer cancel()
		if err := u.notifier.SendVerification(nctx, email, link); err != nil {
			u.log.Warn("verification notify failed", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
		u.log.Debug("verification notify handed off", zap.Int64("user_id", userID))
	}()
}
