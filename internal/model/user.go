package model

import "time"

// User is a document in the `users` collection. Its id is the principal uid
// issued at registration.
//
// Fields:
//
//	Admin – true only when the stored field is the boolean true. Nothing in
//	        the API writes it; it is granted out of band.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`                   // users.name
	Email        string    `json:"email"`                  // users.email
	Admin        bool      `json:"admin"`                  // users.admin
	Phone        string    `json:"phone,omitempty"`        // users.phone
	Address      string    `json:"address,omitempty"`      // users.address
	Bio          string    `json:"bio,omitempty"`          // users.bio
	ProfileImage string    `json:"profileImage,omitempty"` // users.profileImage
	CreatedAt    time.Time `json:"createdAt"`              // users.createdAt
}

func UserFromDoc(id string, data map[string]any) User {
	admin, _ := data["admin"].(bool)
	return User{
		ID:           id,
		Name:         str(data, "name"),
		Email:        str(data, "email"),
		Admin:        admin,
		Phone:        str(data, "phone"),
		Address:      str(data, "address"),
		Bio:          str(data, "bio"),
		ProfileImage: str(data, "profileImage"),
		CreatedAt:    timestamp(data, "createdAt"),
	}
}

// Principal is the authenticated identity behind a session.
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Credential is a document in the `credentials` collection, keyed by uid.
type Credential struct {
	UID          string
	Email        string    // credentials.email
	PasswordHash string    // credentials.passwordHash (bcrypt)
	CreatedAt    time.Time // credentials.createdAt
}

func CredentialFromDoc(id string, data map[string]any) Credential {
	return Credential{
		UID:          id,
		Email:        str(data, "email"),
		PasswordHash: str(data, "passwordHash"),
		CreatedAt:    timestamp(data, "createdAt"),
	}
}

// RefreshToken is a document in the `refresh_tokens` collection. The
// document id is the SHA-256 hex digest of the token; the plain token is
// never stored.
type RefreshToken struct {
	TokenHash string
	UID       string     // refresh_tokens.uid
	ExpiresAt time.Time  // refresh_tokens.expiresAt
	RevokedAt *time.Time // refresh_tokens.revokedAt (absent while active)
}

func RefreshTokenFromDoc(id string, data map[string]any) RefreshToken {
	rt := RefreshToken{
		TokenHash: id,
		UID:       str(data, "uid"),
		ExpiresAt: timestamp(data, "expiresAt"),
	}
	if t, ok := toTime(data["revokedAt"]); ok {
		rt.RevokedAt = &t
	}
	return rt
}

// PasswordReset is a document in the `password_resets` collection, keyed
// like RefreshToken.
type PasswordReset struct {
	TokenHash string
	UID       string     // password_resets.uid
	ExpiresAt time.Time  // password_resets.expiresAt
	UsedAt    *time.Time // password_resets.usedAt
}

func PasswordResetFromDoc(id string, data map[string]any) PasswordReset {
	pr := PasswordReset{
		TokenHash: id,
		UID:       str(data, "uid"),
		ExpiresAt: timestamp(data, "expiresAt"),
	}
	if t, ok := toTime(data["usedAt"]); ok {
		pr.UsedAt = &t
	}
	return pr
}
