// Package identity is the local identity provider: email/password accounts,
// short-lived JWT access tokens and rotating opaque refresh tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/repository"
	"github.com/boxoffice/boxoffice/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailExists        = repository.ErrEmailExists
	ErrMailUnavailable    = errors.New("password reset mail is not configured")
)

// Mailer delivers password reset tokens out of band.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Principal    model.Principal `json:"principal"`
	AccessToken  string          `json:"access_token"`
	AccessExp    time.Time       `json:"access_expires_at"`
	RefreshToken string          `json:"refresh_token"`
	RefreshExp   time.Time       `json:"refresh_expires_at"`
}

// Authenticator is stateless; every call goes to the store.
type Authenticator struct {
	cfg    Config
	creds  *repository.CredentialRepo
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	resets *repository.ResetRepo
	mail   Mailer
}

func NewAuthenticator(cfg Config, store docstore.Store, mail Mailer) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		creds:  repository.NewCredentialRepo(store, cfg.BcryptCost),
		users:  repository.NewUserRepo(store),
		tokens: repository.NewTokenRepo(store),
		resets: repository.NewResetRepo(store),
		mail:   mail,
	}
}

// Register creates the account and its users document (admin false) and
// signs the new user in.
func (a *Authenticator) Register(ctx context.Context, email, password, name string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	uid, err := a.creds.Create(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	if err := a.users.Create(ctx, uid, name, email); err != nil {
		// roll back so the address can register again; ctx may be the reason we failed
		if derr := a.creds.Delete(context.WithoutCancel(ctx), uid, email); derr != nil {
			log.Printf("identity: credential %s left without profile: %v", uid, derr)
		}
		return Session{}, err
	}
	return a.issue(ctx, uid, email)
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	c, err := a.creds.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(c.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return a.issue(ctx, c.UID, c.Email)
}

// Refresh rotates a refresh token: the old one is revoked and a new
// session is issued.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := utils.HashToken(refreshToken)
	uid, err := a.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	c, err := a.creds.Get(ctx, uid)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := a.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, err
	}
	return a.issue(ctx, uid, c.Email)
}

// Logout revokes one refresh token.
func (a *Authenticator) Logout(ctx context.Context, refreshToken string) error {
	return a.tokens.RevokeByHash(ctx, utils.HashToken(refreshToken))
}

// LogoutAll revokes every refresh token of uid.
func (a *Authenticator) LogoutAll(ctx context.Context, uid string) error {
	return a.tokens.RevokeAllForUser(ctx, uid)
}

// Verify checks an access token and returns its principal.
func (a *Authenticator) Verify(accessToken string) (model.Principal, error) {
	claims, err := utils.ParseAccessToken(a.cfg.Secret, accessToken)
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{UID: claims.Subject, Email: claims.Email}, nil
}

// RequestPasswordReset mails a reset token when the email belongs to an
// account. Unknown emails succeed silently so the endpoint cannot be used
// to probe for accounts.
func (a *Authenticator) RequestPasswordReset(ctx context.Context, email string) error {
	c, err := a.creds.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if a.mail == nil {
		return ErrMailUnavailable
	}
	tok, err := utils.NewOpaqueToken(a.cfg.ResetTTL)
	if err != nil {
		return err
	}
	if err := a.resets.StoreReset(ctx, c.UID, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return err
	}
	if err := a.mail.SendPasswordReset(ctx, c.Email, tok.Raw); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and signs
// out every existing session of the account.
func (a *Authenticator) ResetPassword(ctx context.Context, token, newPassword string) error {
	uid, err := a.resets.Consume(ctx, utils.HashToken(token))
	if errors.Is(err, repository.ErrTokenInvalid) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if err := a.creds.SetPassword(ctx, uid, newPassword); err != nil {
		return err
	}
	return a.tokens.RevokeAllForUser(ctx, uid)
}

func (a *Authenticator) issue(ctx context.Context, uid, email string) (Session, error) {
	at, err := utils.NewAccessToken(a.cfg.Secret, uid, email, a.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	rt, err := utils.NewOpaqueToken(a.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}
	if err := a.tokens.StoreRefresh(ctx, uid, utils.HashToken(rt.Raw), rt.Exp); err != nil {
		return Session{}, err
	}
	return Session{
		Principal:    model.Principal{UID: uid, Email: email},
		AccessToken:  at.Token,
		AccessExp:    at.Exp,
		RefreshToken: rt.Raw,
		RefreshExp:   rt.Exp,
	}, nil
}
