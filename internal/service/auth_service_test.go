package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
	"pharmacy-pos/pkg/jwt"
)

type authFixture struct {
	users    *memUsers
	roles    *memRoles
	notifier *session.Notifier
	events   []session.Event
	pub      *recordingPublisher
	svc      AuthService
}

func newAuthFixture(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()
	roles := newMemRoles()
	f := &authFixture{
		users:    newMemUsers(roles),
		roles:    roles,
		notifier: session.NewNotifier(),
		pub:      &recordingPublisher{},
	}
	f.notifier.Subscribe(func(e session.Event) { f.events = append(f.events, e) })
	caps := session.NewCapabilities(f.notifier)
	t.Cleanup(caps.Close)
	log, _ := newTestLogger()
	f.svc = NewAuthService(f.users, roles, jwt.NewManager("test-secret"), f.notifier, caps, f.pub, log, cfg)
	return f
}

func TestSignUpCreatesCashierProfile(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	user, err := f.svc.SignUp(context.Background(), &SignUpRequest{
		Email:           " New.Cashier@Example.com ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FullName:        "New Cashier",
		Role:            model.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "new.cashier@example.com", user.Email)
	assert.Equal(t, model.RoleCashier, user.Role)
	assert.Equal(t, "New Cashier", user.FullName)
	assert.True(t, user.IsActive)

	_, err = f.svc.SignUp(context.Background(), &SignUpRequest{
		Email: "new.cashier@example.com", Password: "secret1", ConfirmPassword: "secret1", FullName: "Again",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestSignUpChecksPasswordsBeforeTouchingTheStore(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	_, err := f.svc.SignUp(context.Background(), &SignUpRequest{
		Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2", FullName: "A",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = f.svc.SignUp(context.Background(), &SignUpRequest{
		Email: "not-an-email", Password: "secret1", ConfirmPassword: "secret1", FullName: "A",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.users.calls)
}

func TestSignInIssuesSingleSession(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.users.addUser(t, "cashier@example.com", "secret1", model.RoleCashier)

	first, err := f.svc.SignIn(context.Background(), "cashier@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCashier, first.Session.Role)
	assert.Equal(t, access.ScreensFor(model.RoleCashier), first.Session.Screens)
	assert.Contains(t, first.Session.Privileges, model.PrivSalesInsert)

	sess, err := f.svc.ValidateToken(context.Background(), first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, sess.UserID)

	second, err := f.svc.SignIn(context.Background(), "CASHIER@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = f.svc.ValidateToken(context.Background(), second.Token)
	require.NoError(t, err)

	require.NotEmpty(t, f.events)
	assert.Equal(t, session.EventSignedIn, f.events[0].Type)
}

func TestSignInFailures(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	u := f.users.addUser(t, "cashier@example.com", "secret1", model.RoleCashier)

	_, err := f.svc.SignIn(context.Background(), "cashier@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.SignIn(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	profile := *u.Profile
	profile.IsActive = false
	require.NoError(t, f.users.UpdateProfile(context.Background(), &profile))
	_, err = f.svc.SignIn(context.Background(), "cashier@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestSignOutInvalidatesToken(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.users.addUser(t, "manager@example.com", "secret1", model.RoleStockManager)

	resp, err := f.svc.SignIn(context.Background(), "manager@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(context.Background(), resp.Session))

	_, err = f.svc.ValidateToken(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, session.EventSignedOut, f.events[len(f.events)-1].Type)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.users.addUser(t, "cashier@example.com", "secret1", model.RoleCashier)
	ctx := context.Background()

	token, err := f.svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = f.svc.RequestPasswordReset(ctx, "cashier@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	err = f.svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{Token: token, Password: "newpass1", ConfirmPassword: "other"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{Token: token, Password: "newpass1", ConfirmPassword: "newpass1"}))
	_, err = f.svc.SignIn(ctx, "cashier@example.com", "newpass1")
	require.NoError(t, err)

	// the token is bound to the old password hash
	err = f.svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{Token: token, Password: "again12", ConfirmPassword: "again12"})
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	// an access token is not a reset token
	resp, err := f.svc.SignIn(ctx, "cashier@example.com", "newpass1")
	require.NoError(t, err)
	err = f.svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{Token: resp.Token, Password: "again12", ConfirmPassword: "again12"})
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestChangePasswordEndsSessions(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.users.addUser(t, "cashier@example.com", "secret1", model.RoleCashier)
	ctx := context.Background()
	resp, err := f.svc.SignIn(ctx, "cashier@example.com", "secret1")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, resp.Session, &ChangePasswordRequest{OldPassword: "nope", NewPassword: "secret2", ConfirmPassword: "secret2"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, resp.Session, &ChangePasswordRequest{OldPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"}))
	_, err = f.svc.ValidateToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, session.EventPasswordChanged, f.events[len(f.events)-1].Type)
}

func TestIdleSessionExpires(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{IdleTimeout: 5 * time.Minute})
	f.users.addUser(t, "cashier@example.com", "secret1", model.RoleCashier)
	ctx := context.Background()
	resp, err := f.svc.SignIn(ctx, "cashier@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Heartbeat(ctx, resp.Session))
	assert.Contains(t, f.pub.types(), ws.EventUserStatus)
	_, err = f.svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)

	f.svc.(*authService).now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	_, err = f.svc.ValidateToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
