package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
)

// BootstrapService seeds the first superadmin from configuration so a
// fresh deployment has someone who can log in.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Now    func() time.Time
}

// EnsureSuperAdmin creates a superadmin with email and password unless an
// account with that email already exists. It reports whether one was
// created. An existing account is left untouched, including its password.
func (s *BootstrapService) EnsureSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, errors.New("bootstrap: email and password are required")
	}

	if _, err := s.Store.Accounts().GetByEmail(ctx, email); err == nil {
		l.Debug("bootstrap account already present", slog.String("email", email))
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("bootstrap: lookup: %w", err)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap: hash password: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().UTC()
	a := domain.Account{
		ID:           idx.NewAt(at).String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Role:         domain.RoleSuperAdmin,
		Active:       true,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	switch err := s.Store.Accounts().Create(ctx, a); {
	case errors.Is(err, store.ErrAlreadyExists):
		// Another replica won the race.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("bootstrap: create account: %w", err)
	}

	l.Info("bootstrap superadmin created", slog.String("account_id", a.ID), slog.String("email", email))
	return true, nil
}
