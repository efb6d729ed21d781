package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/services/audit"
)

// IdentityProvider is the external credential store (Supabase GoTrue in production).
// A call that succeeds without returning a user yields (nil, nil).
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*models.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error)
	DeleteUser(ctx context.Context, id string) error
}

// ProfileStore persists user profiles. Missing rows come back as (nil, nil).
type ProfileStore interface {
	Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.UserProfile, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error)
}

// AuditReader reads the audit trail of a user
type AuditReader interface {
	ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(sub, email string) (string, error)
}

// Auditor records profile changes
type Auditor interface {
	LogUserSignedUp(profile *models.UserProfile, meta audit.RequestMeta) error
	LogRoleUpdated(actor audit.Actor, targetID string, from, to models.Role, meta audit.RequestMeta) error
	LogUserDeleted(actor audit.Actor, targetID string, meta audit.RequestMeta) error
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	User  *models.UserProfile `json:"user"`
	Token string              `json:"token"`
}

// AuthService implements registration, login and profile management
type AuthService struct {
	identities IdentityProvider
	profiles   ProfileStore
	auditLogs  AuditReader
	issuer     TokenIssuer
	auditor    Auditor
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService. auditor and auditLogs may be nil.
func NewAuthService(
	identities IdentityProvider,
	profiles ProfileStore,
	auditLogs AuditReader,
	issuer TokenIssuer,
	auditor Auditor,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		profiles:   profiles,
		auditLogs:  auditLogs,
		issuer:     issuer,
		auditor:    auditor,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// providerFailure maps an auth provider error. Provider-reported messages are
// passed through verbatim with errType; transport failures become external.
func providerFailure(errType ErrorType, err error) error {
	var pe providerError
	if errors.As(err, &pe) && pe.ProviderMessage() != "" {
		return NewDomainError(errType, pe.ProviderMessage(), err)
	}
	return WrapExternal("Authentication service unavailable", err)
}

// SignUp registers a credential, creates the profile and issues a session token.
// An empty role defaults to basic.
func (s *AuthService) SignUp(ctx context.Context, email, password string, role models.Role) (*AuthResult, error) {
	if role == "" {
		role = models.DefaultRole
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	email = strings.TrimSpace(email)

	identity, err := s.identities.SignUp(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign-up rejected by auth provider", zap.String("email", email), zap.Error(err))
		return nil, providerFailure(ErrorTypeValidation, err)
	}
	if identity == nil || identity.ID == "" {
		return nil, ErrCreateUser
	}
	if identity.Email == "" {
		identity.Email = email
	}

	profile, err := s.profiles.Create(ctx, models.NewUserProfile(identity.ID, identity.Email, role))
	if err != nil {
		// The credential already exists at this point and is left in place.
		s.logger.Error("profile creation failed after sign-up",
			zap.String("user_id", identity.ID),
			zap.Error(err))
		return nil, WrapExternal("Failed to create user profile", err)
	}

	token, err := s.issuer.Issue(profile.ID, profile.Email)
	if err != nil {
		return nil, WrapInternal("failed to issue session token", err)
	}

	if s.auditor != nil {
		if err := s.auditor.LogUserSignedUp(profile, audit.MetaFromContext(ctx)); err != nil {
			s.logger.Warn("failed to record sign-up", zap.String("user_id", profile.ID), zap.Error(err))
		}
	}

	s.logger.Info("user signed up", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
	return &AuthResult{User: profile, Token: token}, nil
}

// SignIn verifies credentials and returns the stored profile with a fresh token
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	identity, err := s.identities.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Warn("sign-in rejected by auth provider", zap.Error(err))
		return nil, providerFailure(ErrorTypeUnauthorized, err)
	}
	if identity == nil || identity.ID == "" {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, WrapExternal("Failed to load user profile", err)
	}
	if profile == nil {
		s.logger.Warn("credential without profile", zap.String("user_id", identity.ID))
		return nil, ErrProfileNotFound
	}

	token, err := s.issuer.Issue(profile.ID, profile.Email)
	if err != nil {
		return nil, WrapInternal("failed to issue session token", err)
	}

	s.logger.Info("user signed in", zap.String("user_id", profile.ID))
	return &AuthResult{User: profile, Token: token}, nil
}

// GetCurrentUser returns the profile of the authenticated subject
func (s *AuthService) GetCurrentUser(ctx context.Context, id string) (*models.UserProfile, error) {
	return s.GetUser(ctx, id)
}

// GetUser returns a profile by id
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, WrapExternal("Failed to load user profile", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

// UpdateUserRole changes a user's role and stamps updated_at.
//
// The previous role recorded in the audit entry comes from a separate read
// before the update. It is best effort: a concurrent update between the two
// calls can make it stale, and a failed read leaves it empty without
// blocking the update.
func (s *AuthService) UpdateUserRole(ctx context.Context, actor audit.Actor, id string, role models.Role) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var previous models.Role
	current, err := s.profiles.GetByID(ctx, id)
	switch {
	case err != nil:
		s.logger.Warn("could not read role before update", zap.String("user_id", id), zap.Error(err))
	case current == nil:
		return nil, ErrUserNotFound
	default:
		previous = current.Role
	}

	updated, err := s.profiles.UpdateRole(ctx, id, role, s.now())
	if err != nil {
		return nil, WrapExternal("Failed to update user role", err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	if s.auditor != nil {
		if err := s.auditor.LogRoleUpdated(actor, id, previous, role, audit.MetaFromContext(ctx)); err != nil {
			s.logger.Warn("failed to record role update", zap.String("user_id", id), zap.Error(err))
		}
	}

	s.logger.Info("user role updated",
		zap.String("user_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
		zap.String("actor_id", actor.ID))
	return updated, nil
}

// ListUsers returns profiles newest first, optionally restricted to one role
func (s *AuthService) ListUsers(ctx context.Context, role models.Role) ([]*models.UserProfile, error) {
	var (
		profiles []*models.UserProfile
		err      error
	)
	switch {
	case role == "":
		profiles, err = s.profiles.List(ctx)
	case role.Valid():
		profiles, err = s.profiles.ListByRole(ctx, role)
	default:
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, WrapExternal("Failed to list users", err)
	}
	if profiles == nil {
		profiles = []*models.UserProfile{}
	}
	return profiles, nil
}

// DeleteUser removes the credential and then the profile. A failure in
// either step is reported as is; nothing is rolled back.
func (s *AuthService) DeleteUser(ctx context.Context, actor audit.Actor, id string) error {
	if err := s.identities.DeleteUser(ctx, id); err != nil {
		s.logger.Error("failed to delete credential", zap.String("user_id", id), zap.Error(err))
		return WrapExternal("Failed to delete user", err)
	}

	if err := s.profiles.Delete(ctx, id); err != nil {
		s.logger.Error("credential deleted but profile removal failed", zap.String("user_id", id), zap.Error(err))
		return WrapExternal("Failed to delete user profile", err)
	}

	if s.auditor != nil {
		if err := s.auditor.LogUserDeleted(actor, id, audit.MetaFromContext(ctx)); err != nil {
			s.logger.Warn("failed to record user deletion", zap.String("user_id", id), zap.Error(err))
		}
	}

	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// ListAudit returns the most recent audit entries about a user
func (s *AuthService) ListAudit(ctx context.Context, id string, limit int) ([]*models.AuditLog, error) {
	if s.auditLogs == nil {
		return []*models.AuditLog{}, nil
	}
	logs, err := s.auditLogs.ListByTarget(ctx, id, limit)
	if err != nil {
		return nil, WrapExternal("Failed to load audit trail", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}
