package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/utils"
)

// CredentialRepo stores email/password pairs. The document id is the uid
// shared with the users collection.
type CredentialRepo struct {
	Store docstore.Store
	Cost  int // bcrypt cost
}

func NewCredentialRepo(s docstore.Store, cost int) *CredentialRepo {
	return &CredentialRepo{Store: s, Cost: cost}
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// emailKey is the id of an address's claim document. Hashed because
// Firestore ids may not contain '/'.
func emailKey(email string) string { return utils.HashToken(normEmail(email)) }

// Create hashes the password, claims the email and stores the credential
// under a new uid. The claim is created atomically, so of several
// concurrent calls for one address only one succeeds; the rest get
// ErrEmailExists.
func (r *CredentialRepo) Create(ctx context.Context, email, password string) (string, error) {
	email = normEmail(email)
	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return "", err
	}
	uid := uuid.NewString()
	err = r.Store.Create(ctx, Emails, emailKey(email), map[string]any{
		"uid":       uid,
		"email":     email,
		"createdAt": docstore.ServerTimestamp,
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return "", ErrEmailExists
	}
	if err != nil {
		return "", fmt.Errorf("claim email: %w", err)
	}
	err = r.Store.Set(ctx, Credentials, uid, map[string]any{
		"email":        email,
		"passwordHash": hash,
		"createdAt":    docstore.ServerTimestamp,
	})
	if err != nil {
		if derr := r.Store.Delete(ctx, Emails, emailKey(email)); derr != nil {
			log.Printf("credentials: release claim for %s: %v", email, derr)
		}
		return "", fmt.Errorf("create credential: %w", err)
	}
	return uid, nil
}

// Delete removes the credential and releases its email claim.
func (r *CredentialRepo) Delete(ctx context.Context, uid, email string) error {
	if err := r.Store.Delete(ctx, Credentials, uid); err != nil {
		return fmt.Errorf("delete credential %s: %w", uid, err)
	}
	if err := r.Store.Delete(ctx, Emails, emailKey(email)); err != nil {
		return fmt.Errorf("release email claim: %w", err)
	}
	return nil
}

// GetByEmail follows the email claim to its credential. A claim whose
// credential is not written yet counts as not found.
func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (model.Credential, error) {
	claim, err := r.Store.Get(ctx, Emails, emailKey(email))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, err
	}
	uid, _ := claim.Data["uid"].(string)
	if uid == "" {
		return model.Credential{}, ErrCredentialNotFound
	}
	return r.Get(ctx, uid)
}

func (r *CredentialRepo) Get(ctx context.Context, uid string) (model.Credential, error) {
	doc, err := r.Store.Get(ctx, Credentials, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, err
	}
	return model.CredentialFromDoc(doc.ID, doc.Data), nil
}

func (r *CredentialRepo) SetPassword(ctx context.Context, uid, password string) error {
	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return err
	}
	err = r.Store.Update(ctx, Credentials, uid, map[string]any{"passwordHash": hash})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}
