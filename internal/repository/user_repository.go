package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
)

// ProfilePatch holds the self-editable profile fields. The admin flag is
// deliberately absent.
type ProfilePatch struct {
	Name         *string
	Bio          *string
	Phone        *string
	Address      *string
	ProfileImage *string
}

type UserRepo struct{ Store docstore.Store }

func NewUserRepo(s docstore.Store) *UserRepo { return &UserRepo{Store: s} }

func (r *UserRepo) Get(ctx context.Context, uid string) (model.User, error) {
	doc, err := r.Store.Get(ctx, Users, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return model.UserFromDoc(doc.ID, doc.Data), nil
}

// Create writes the profile document that accompanies a new account.
func (r *UserRepo) Create(ctx context.Context, uid, name, email string) error {
	err := r.Store.Set(ctx, Users, uid, map[string]any{
		"name":      strings.TrimSpace(name),
		"email":     strings.ToLower(strings.TrimSpace(email)),
		"admin":     false,
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", uid, err)
	}
	return nil
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, docstore.Query{}.Order("createdAt", docstore.Desc))
}

// All is an unordered full scan.
func (r *UserRepo) All(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, docstore.Query{})
}

func (r *UserRepo) query(ctx context.Context, q docstore.Query) ([]model.User, error) {
	docs, err := r.Store.Query(ctx, Users, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.UserFromDoc(d.ID, d.Data))
	}
	return out, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, uid string, p ProfilePatch) (model.User, error) {
	f := map[string]any{}
	if p.Name != nil {
		f["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Bio != nil {
		f["bio"] = *p.Bio
	}
	if p.Phone != nil {
		f["phone"] = *p.Phone
	}
	if p.Address != nil {
		f["address"] = *p.Address
	}
	if p.ProfileImage != nil {
		f["profileImage"] = *p.ProfileImage
	}
	err := r.Store.Update(ctx, Users, uid, f)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user %s: %w", uid, err)
	}
	return r.Get(ctx, uid)
}
