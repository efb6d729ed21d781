package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/services/audit"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	args := m.Called(ctx, email, password)
	if id := args.Get(0); id != nil {
		return id.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	args := m.Called(ctx, email, password)
	if id := args.Get(0); id != nil {
		return id.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, profile)
	if p := args.Get(0); p != nil {
		return p.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error) {
	args := m.Called(ctx, id, role, updatedAt)
	if p := args.Get(0); p != nil {
		return p.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProfileStore) List(ctx context.Context) ([]*models.UserProfile, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error) {
	args := m.Called(ctx, role)
	if p := args.Get(0); p != nil {
		return p.([]*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, targetID, limit)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(sub, email string) (string, error) {
	args := m.Called(sub, email)
	return args.String(0), args.Error(1)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogUserSignedUp(profile *models.UserProfile, meta audit.RequestMeta) error {
	return m.Called(profile, meta).Error(0)
}

func (m *MockAuditor) LogRoleUpdated(actor audit.Actor, targetID string, from, to models.Role, meta audit.RequestMeta) error {
	return m.Called(actor, targetID, from, to, meta).Error(0)
}

func (m *MockAuditor) LogUserDeleted(actor audit.Actor, targetID string, meta audit.RequestMeta) error {
	return m.Called(actor, targetID, meta).Error(0)
}

// fakeProviderError carries a message reported by the auth provider
type fakeProviderError struct{ msg string }

func (e *fakeProviderError) Error() string           { return "provider: " + e.msg }
func (e *fakeProviderError) ProviderMessage() string { return e.msg }

type authFixture struct {
	identities *MockIdentityProvider
	profiles   *MockProfileStore
	auditLogs  *MockAuditReader
	issuer     *MockTokenIssuer
	auditor    *MockAuditor
	service    *AuthService
	now        time.Time
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		identities: new(MockIdentityProvider),
		profiles:   new(MockProfileStore),
		auditLogs:  new(MockAuditReader),
		issuer:     new(MockTokenIssuer),
		auditor:    new(MockAuditor),
		now:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewAuthService(f.identities, f.profiles, f.auditLogs, f.issuer, f.auditor, zap.NewNop())
	f.service.now = func() time.Time { return f.now }
	return f
}

const userID = "0b6f3c2e-8d4f-4a55-9d7e-3f2a1b0c9d8e"

// assertDomainError checks the error category and the client-facing message.
// errors.Is on a DomainError only compares the category.
func assertDomainError(t *testing.T, err error, want *DomainError) {
	t.Helper()
	var de *DomainError
	require.True(t, errors.As(err, &de), "expected a DomainError, got %v", err)
	assert.Equal(t, want.Type, de.Type)
	assert.Equal(t, want.Message, de.Message)
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("success defaults role to basic", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "new@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "new@example.com"}, nil)
		f.profiles.On("Create", ctx, mock.MatchedBy(func(p *models.UserProfile) bool {
			return p.ID == userID && p.Role == models.RoleBasic && p.CreatedAt.Equal(p.UpdatedAt)
		})).Return(models.NewUserProfile(userID, "new@example.com", models.RoleBasic), nil)
		f.issuer.On("Issue", userID, "new@example.com").Return("signed", nil)
		f.auditor.On("LogUserSignedUp", mock.Anything, audit.RequestMeta{}).Return(nil)

		result, err := f.service.SignUp(ctx, "new@example.com", "secret1", "")
		require.NoError(t, err)
		assert.Equal(t, "signed", result.Token)
		assert.Equal(t, models.RoleBasic, result.User.Role)
		f.auditor.AssertExpectations(t)
	})

	t.Run("requested role is stored", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "pro@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "pro@example.com"}, nil)
		f.profiles.On("Create", ctx, mock.MatchedBy(func(p *models.UserProfile) bool {
			return p.Role == models.RolePro
		})).Return(models.NewUserProfile(userID, "pro@example.com", models.RolePro), nil)
		f.issuer.On("Issue", userID, "pro@example.com").Return("signed", nil)
		f.auditor.On("LogUserSignedUp", mock.Anything, mock.Anything).Return(errors.New("queue full"))

		result, err := f.service.SignUp(ctx, "pro@example.com", "secret1", models.RolePro)
		require.NoError(t, err)
		assert.Equal(t, models.RolePro, result.User.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.SignUp(ctx, "a@example.com", "secret1", models.Role("admin"))
		assertDomainError(t, err, ErrInvalidRole)
		f.identities.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider message passes through as validation", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "dup@example.com", "secret1").
			Return(nil, &fakeProviderError{msg: "User already registered"})

		_, err := f.service.SignUp(ctx, "dup@example.com", "secret1", "")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "User already registered", de.Message)
		f.profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("transport failure is external", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "a@example.com", "secret1").Return(nil, errors.New("dial tcp: refused"))

		_, err := f.service.SignUp(ctx, "a@example.com", "secret1", "")
		assert.True(t, IsExternalError(err))
	})

	t.Run("no user returned", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "a@example.com", "secret1").Return(nil, nil)

		_, err := f.service.SignUp(ctx, "a@example.com", "secret1", "")
		assertDomainError(t, err, ErrCreateUser)
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "Failed to create user", de.Message)
	})

	t.Run("profile store failure is not compensated", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "a@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "a@example.com"}, nil)
		f.profiles.On("Create", ctx, mock.Anything).Return(nil, errors.New("503"))

		_, err := f.service.SignUp(ctx, "a@example.com", "secret1", "")
		assert.True(t, IsExternalError(err))
		f.identities.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
		f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("token failure is internal", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignUp", ctx, "a@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "a@example.com"}, nil)
		f.profiles.On("Create", ctx, mock.Anything).
			Return(models.NewUserProfile(userID, "a@example.com", models.RoleBasic), nil)
		f.issuer.On("Issue", userID, "a@example.com").Return("", errors.New("bad key"))

		_, err := f.service.SignUp(ctx, "a@example.com", "secret1", "")
		assert.True(t, IsInternalError(err))
	})
}

func TestAuthService_SignIn(t *testing.T) {
	ctx := context.Background()
	profile := models.NewUserProfile(userID, "a@example.com", models.RoleExclusive)

	t.Run("success returns stored role", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignInWithPassword", ctx, "a@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "a@example.com"}, nil)
		f.profiles.On("GetByID", ctx, userID).Return(profile, nil)
		f.issuer.On("Issue", userID, "a@example.com").Return("signed", nil)

		result, err := f.service.SignIn(ctx, "a@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleExclusive, result.User.Role)
		assert.Equal(t, "signed", result.Token)
	})

	t.Run("wrong password message passes through", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignInWithPassword", ctx, "a@example.com", "nope").
			Return(nil, &fakeProviderError{msg: "Invalid login credentials"})

		_, err := f.service.SignIn(ctx, "a@example.com", "nope")
		require.True(t, IsUnauthorizedError(err))
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "Invalid login credentials", de.Message)
	})

	t.Run("no user returned", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignInWithPassword", ctx, "a@example.com", "secret1").Return(nil, nil)

		_, err := f.service.SignIn(ctx, "a@example.com", "secret1")
		assertDomainError(t, err, ErrInvalidCredentials)
	})

	t.Run("missing profile is not fabricated", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignInWithPassword", ctx, "a@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "a@example.com"}, nil)
		f.profiles.On("GetByID", ctx, userID).Return(nil, nil)

		_, err := f.service.SignIn(ctx, "a@example.com", "secret1")
		assertDomainError(t, err, ErrProfileNotFound)
		f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("store failure is external", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("SignInWithPassword", ctx, "a@example.com", "secret1").
			Return(&models.Identity{ID: userID, Email: "a@example.com"}, nil)
		f.profiles.On("GetByID", ctx, userID).Return(nil, errors.New("timeout"))

		_, err := f.service.SignIn(ctx, "a@example.com", "secret1")
		assert.True(t, IsExternalError(err))
	})
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	profile := models.NewUserProfile(userID, "a@example.com", models.RolePro)
	f.profiles.On("GetByID", ctx, userID).Return(profile, nil)
	f.profiles.On("GetByID", ctx, "missing").Return(nil, nil)
	f.profiles.On("GetByID", ctx, "broken").Return(nil, errors.New("boom"))

	got, err := f.service.GetCurrentUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	_, err = f.service.GetUser(ctx, "missing")
	assertDomainError(t, err, ErrUserNotFound)

	_, err = f.service.GetUser(ctx, "broken")
	assert.True(t, IsExternalError(err))
	assert.Equal(t, "Failed to load user profile: boom", err.(*DomainError).Message)
}

func TestAuthService_UpdateUserRole(t *testing.T) {
	ctx := audit.WithRequestMeta(context.Background(), audit.RequestMeta{RequestID: "req-9"})
	actor := audit.Actor{ID: "admin", Email: "admin@example.com"}

	t.Run("success stamps updated_at and audits", func(t *testing.T) {
		f := newAuthFixture()
		before := models.NewUserProfile(userID, "a@example.com", models.RoleBasic)
		after := *before
		after.Role = models.RoleExclusive
		after.UpdatedAt = f.now

		f.profiles.On("GetByID", ctx, userID).Return(before, nil)
		f.profiles.On("UpdateRole", ctx, userID, models.RoleExclusive, f.now).Return(&after, nil)
		f.auditor.On("LogRoleUpdated", actor, userID, models.RoleBasic, models.RoleExclusive,
			audit.RequestMeta{RequestID: "req-9"}).Return(nil)

		got, err := f.service.UpdateUserRole(ctx, actor, userID, models.RoleExclusive)
		require.NoError(t, err)
		assert.Equal(t, models.RoleExclusive, got.Role)
		assert.Equal(t, f.now, got.UpdatedAt)
		f.auditor.AssertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.service.UpdateUserRole(ctx, actor, userID, models.Role("Pro"))
		assertDomainError(t, err, ErrInvalidRole)
		f.profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAuthFixture()
		f.profiles.On("GetByID", ctx, userID).Return(nil, nil)

		_, err := f.service.UpdateUserRole(ctx, actor, userID, models.RolePro)
		assertDomainError(t, err, ErrUserNotFound)
		f.profiles.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("row vanished before update", func(t *testing.T) {
		f := newAuthFixture()
		f.profiles.On("GetByID", ctx, userID).Return(models.NewUserProfile(userID, "a@example.com", models.RoleBasic), nil)
		f.profiles.On("UpdateRole", ctx, userID, models.RolePro, f.now).Return(nil, nil)

		_, err := f.service.UpdateUserRole(ctx, actor, userID, models.RolePro)
		assertDomainError(t, err, ErrUserNotFound)
		f.auditor.AssertNotCalled(t, "LogRoleUpdated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed read does not block the update", func(t *testing.T) {
		f := newAuthFixture()
		after := models.NewUserProfile(userID, "a@example.com", models.RolePro)
		f.profiles.On("GetByID", ctx, userID).Return(nil, errors.New("timeout"))
		f.profiles.On("UpdateRole", ctx, userID, models.RolePro, f.now).Return(after, nil)
		f.auditor.On("LogRoleUpdated", actor, userID, models.Role(""), models.RolePro,
			audit.RequestMeta{RequestID: "req-9"}).Return(nil)

		got, err := f.service.UpdateUserRole(ctx, actor, userID, models.RolePro)
		require.NoError(t, err)
		assert.Equal(t, models.RolePro, got.Role)
		f.auditor.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newAuthFixture()
		f.profiles.On("GetByID", ctx, userID).Return(models.NewUserProfile(userID, "a@example.com", models.RoleBasic), nil)
		f.profiles.On("UpdateRole", ctx, userID, models.RolePro, f.now).Return(nil, errors.New("boom"))

		_, err := f.service.UpdateUserRole(ctx, actor, userID, models.RolePro)
		assert.True(t, IsExternalError(err))
		assert.Equal(t, "Failed to update user role: boom", err.(*DomainError).Message)
	})
}

func TestAuthService_ListUsers(t *testing.T) {
	ctx := context.Background()
	all := []*models.UserProfile{
		models.NewUserProfile("b", "b@example.com", models.RolePro),
		models.NewUserProfile("a", "a@example.com", models.RoleBasic),
	}

	f := newAuthFixture()
	f.profiles.On("List", ctx).Return(all, nil)
	f.profiles.On("ListByRole", ctx, models.RolePro).Return(all[:1], nil)
	f.profiles.On("ListByRole", ctx, models.RoleExclusive).Return(nil, nil)

	got, err := f.service.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.service.ListUsers(ctx, models.RolePro)
	require.NoError(t, err)
	assert.Equal(t, "b", got[0].ID)

	got, err = f.service.ListUsers(ctx, models.RoleExclusive)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = f.service.ListUsers(ctx, models.Role("vip"))
	assertDomainError(t, err, ErrInvalidRole)

	broken := newAuthFixture()
	broken.profiles.On("List", ctx).Return(nil, errors.New("boom"))
	_, err = broken.service.ListUsers(ctx, "")
	assert.True(t, IsExternalError(err))
}

func TestAuthService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	actor := audit.Actor{ID: userID, Email: "a@example.com"}

	t.Run("deletes credential then profile", func(t *testing.T) {
		f := newAuthFixture()
		var order []string
		f.identities.On("DeleteUser", ctx, userID).Run(func(mock.Arguments) { order = append(order, "credential") }).Return(nil)
		f.profiles.On("Delete", ctx, userID).Run(func(mock.Arguments) { order = append(order, "profile") }).Return(nil)
		f.auditor.On("LogUserDeleted", actor, userID, audit.RequestMeta{}).Return(nil)

		require.NoError(t, f.service.DeleteUser(ctx, actor, userID))
		assert.Equal(t, []string{"credential", "profile"}, order)
		f.auditor.AssertExpectations(t)
	})

	t.Run("credential failure stops before the profile", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("DeleteUser", ctx, userID).Return(&fakeProviderError{msg: "User not found"})

		err := f.service.DeleteUser(ctx, actor, userID)
		assert.True(t, IsExternalError(err))
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "Failed to delete user: User not found", de.Message)
		f.profiles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("profile failure leaves credential deleted", func(t *testing.T) {
		f := newAuthFixture()
		f.identities.On("DeleteUser", ctx, userID).Return(nil)
		f.profiles.On("Delete", ctx, userID).Return(errors.New("permission denied for table user_profiles"))

		err := f.service.DeleteUser(ctx, actor, userID)
		assert.True(t, IsExternalError(err))
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "Failed to delete user profile: permission denied for table user_profiles", de.Message)
		f.auditor.AssertNotCalled(t, "LogUserDeleted", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_ListAudit(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	entry := models.NewAuditLog(models.AuditActionRoleUpdated, userID)
	f.auditLogs.On("ListByTarget", ctx, userID, 10).Return([]*models.AuditLog{entry}, nil)
	f.auditLogs.On("ListByTarget", ctx, "empty", 10).Return(nil, nil)
	f.auditLogs.On("ListByTarget", ctx, "broken", 10).Return(nil, errors.New("boom"))

	logs, err := f.service.ListAudit(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	logs, err = f.service.ListAudit(ctx, "empty", 10)
	require.NoError(t, err)
	assert.NotNil(t, logs)

	_, err = f.service.ListAudit(ctx, "broken", 10)
	assert.True(t, IsExternalError(err))

	noReader := NewAuthService(f.identities, f.profiles, nil, f.issuer, nil, zap.NewNop())
	logs, err = noReader.ListAudit(ctx, userID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
