package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/identity"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
	Auth    *identity.Authenticator
	Users   *repository.UserRepo
	Timeout time.Duration
}

func NewAuthHandler(a *identity.Authenticator, u *repository.UserRepo, timeout time.Duration) *AuthHandler {
	return &AuthHandler{Auth: a, Users: u, Timeout: timeout}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type resetReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmReq struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type profileReq struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio          *string `json:"bio" validate:"omitempty,max=500"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	Address      *string `json:"address" validate:"omitempty,max=200"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
}

// Register: create the account and its users document, return a session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	s, err := h.Auth.Register(ctx, req.Email, req.Password, strings.TrimSpace(req.Name))
	if errors.Is(err, identity.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return internalError(c, "auth", "register failed", err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return internalError(c, "auth", "login failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if errors.Is(err, identity.ErrInvalidToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return internalError(c, "auth", "refresh failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Logout revokes the refresh token in the body. With no body token but a
// valid bearer access token, every session of that user is revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refresh := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	if refresh != "" {
		if err := h.Auth.Logout(ctx, refresh); err != nil {
			return internalError(c, "auth", "logout failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if raw, ok := strings.CutPrefix(auth, "Bearer "); ok {
		p, err := h.Auth.Verify(strings.TrimSpace(raw))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		if err := h.Auth.LogoutAll(ctx, p.UID); err != nil {
			return internalError(c, "auth", "logout failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// RequestPasswordReset answers 202 whether or not the email is known.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	err := h.Auth.RequestPasswordReset(ctx, req.Email)
	if errors.Is(err, identity.ErrMailUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "password reset is not available"})
	}
	if err != nil {
		return internalError(c, "auth", "password reset failed", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "if the address has an account, a reset mail is on its way"})
}

func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	err := h.Auth.ResetPassword(ctx, strings.TrimSpace(req.Token), req.Password)
	if errors.Is(err, identity.ErrInvalidToken) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired reset token"})
	}
	if err != nil {
		return internalError(c, "auth", "password reset failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's users document.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	u, err := h.Users.Get(ctx, principal(c).UID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		return internalError(c, "auth", "load profile failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe edits the caller's own profile. The admin flag cannot be set here.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, principal(c).UID, repository.ProfilePatch{
		Name:         req.Name,
		Bio:          req.Bio,
		Phone:        req.Phone,
		Address:      req.Address,
		ProfileImage: req.ProfileImage,
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		return internalError(c, "auth", "update profile failed", err)
	}
	return c.JSON(http.StatusOK, u)
}
