package repository

import (
	"context"
	"errors"
	"time"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
)

// TokenRepo persists/validates refresh tokens, keyed by their SHA-256 hash.
type TokenRepo struct{ Store docstore.Store }

func NewTokenRepo(s docstore.Store) *TokenRepo { return &TokenRepo{Store: s} }

// StoreRefresh records a refresh token hash.
func (r *TokenRepo) StoreRefresh(ctx context.Context, uid, tokenHash string, exp time.Time) error {
	return r.Store.Set(ctx, RefreshTokens, tokenHash, map[string]any{
		"uid":       uid,
		"expiresAt": exp.UTC(),
		"createdAt": docstore.ServerTimestamp,
	})
}

// ValidateRefresh returns the uid if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	doc, err := r.Store.Get(ctx, RefreshTokens, tokenHash)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	rt := model.RefreshTokenFromDoc(doc.ID, doc.Data)
	if rt.RevokedAt != nil || time.Now().UTC().After(rt.ExpiresAt) {
		return "", ErrTokenInvalid
	}
	return rt.UID, nil
}

// RevokeByHash marks a token as revoked. Unknown tokens are ignored.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	err := r.Store.Update(ctx, RefreshTokens, tokenHash, map[string]any{"revokedAt": docstore.ServerTimestamp})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAllForUser revokes all of the user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, uid string) error {
	docs, err := r.Store.Query(ctx, RefreshTokens, docstore.Query{}.Where("uid", docstore.OpEq, uid))
	if err != nil {
		return err
	}
	for _, d := range docs {
		if model.RefreshTokenFromDoc(d.ID, d.Data).RevokedAt != nil {
			continue
		}
		if err := r.RevokeByHash(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// PurgeExpired deletes tokens that expired before now and reports how many.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return purgeBefore(ctx, r.Store, RefreshTokens, now)
}

func purgeBefore(ctx context.Context, s docstore.Store, collection string, now time.Time) (int, error) {
	docs, err := s.Query(ctx, collection, docstore.Query{}.Where("expiresAt", docstore.OpLt, now.UTC()))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if err := s.Delete(ctx, collection, d.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ResetRepo stores single-use password reset tokens, keyed by hash.
type ResetRepo struct{ Store docstore.Store }

func NewResetRepo(s docstore.Store) *ResetRepo { return &ResetRepo{Store: s} }

func (r *ResetRepo) StoreReset(ctx context.Context, uid, tokenHash string, exp time.Time) error {
	return r.Store.Set(ctx, PasswordResets, tokenHash, map[string]any{
		"uid":       uid,
		"expiresAt": exp.UTC(),
		"createdAt": docstore.ServerTimestamp,
	})
}

// Consume marks the token used and returns its uid. A token works once.
func (r *ResetRepo) Consume(ctx context.Context, tokenHash string) (string, error) {
	doc, err := r.Store.Get(ctx, PasswordResets, tokenHash)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	pr := model.PasswordResetFromDoc(doc.ID, doc.Data)
	if pr.UsedAt != nil || time.Now().UTC().After(pr.ExpiresAt) {
		return "", ErrTokenInvalid
	}
	if err := r.Store.Update(ctx, PasswordResets, tokenHash, map[string]any{"usedAt": docstore.ServerTimestamp}); err != nil {
		return "", err
	}
	return pr.UID, nil
}

func (r *ResetRepo) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return purgeBefore(ctx, r.Store, PasswordResets, now)
}
