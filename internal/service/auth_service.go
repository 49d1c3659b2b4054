package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
	"pharmacy-pos/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordMismatch   = errors.New("password and confirmation do not match")
	ErrEmailExists        = errors.New("email already exists")
	ErrSessionExpired     = errors.New("session expired")
)

type SignUpRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FullName        string `json:"full_name" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	// Role is accepted for compatibility and ignored; sign-up always yields a cashier.
	Role string `json:"role,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type PasswordResetConfirmRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type SignInResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      model.UserResponse `json:"user"`
	Session   *session.Session   `json:"session"`
}

type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*model.UserResponse, error)
	SignIn(ctx context.Context, email, password string) (*SignInResponse, error)
	SignOut(ctx context.Context, sess *session.Session) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, req *PasswordResetConfirmRequest) error
	ChangePassword(ctx context.Context, sess *session.Session, req *ChangePasswordRequest) error
	ValidateToken(ctx context.Context, token string) (*session.Session, error)
	Heartbeat(ctx context.Context, sess *session.Session) error
}

type AuthConfig struct {
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	// IdleTimeout expires sessions without a heartbeat for this long. Zero disables it.
	IdleTimeout time.Duration
}

type authService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	tokens   *jwt.Manager
	notifier *session.Notifier
	caps     *session.Capabilities
	events   EventPublisher
	cfg      AuthConfig
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokens *jwt.Manager,
	notifier *session.Notifier,
	caps *session.Capabilities,
	events EventPublisher,
	log logrus.FieldLogger,
	cfg AuthConfig,
) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 30 * time.Minute
	}
	return &authService{
		users:    users,
		roles:    roles,
		tokens:   tokens,
		notifier: notifier,
		caps:     caps,
		events:   events,
		cfg:      cfg,
		log:      log.WithField("module", "auth"),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a cashier. Nothing touches the store until the request is valid.
func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*model.UserResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validate(req); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByCode(ctx, model.DefaultSignupRole)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:           req.Email,
		InitialFullName: req.FullName,
		InitialPhone:    req.Phone,
		InitialRoleID:   &role.ID,
	}
	user.Stamp("signup")
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	created, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", created.ID).Info("user signed up")
	resp := created.ToResponse()
	return &resp, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*SignInResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	// one active session per user: the new version invalidates older tokens
	version := uuid.NewString()
	if err := s.users.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastSeen(ctx, user.ID); err != nil {
		return nil, err
	}
	now := s.now()
	user.TokenVersion = version
	user.LastSeenAt = &now

	token, err := s.tokens.Generate(jwt.Claims{
		UserID:       user.ID,
		Email:        user.Email,
		RoleCode:     user.RoleCode(),
		TokenVersion: version,
		Purpose:      jwt.PurposeAccess,
	}, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(session.Event{Type: session.EventSignedIn, UserID: user.ID, Role: user.RoleCode()})
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.RoleCode()}).Info("user signed in")
	return &SignInResponse{
		Token:     token,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
		User:      user.ToResponse(),
		Session:   session.FromUser(user, s.caps),
	}, nil
}

func (s *authService) SignOut(ctx context.Context, sess *session.Session) error {
	if err := s.users.UpdateTokenVersion(ctx, sess.UserID, uuid.NewString()); err != nil {
		return err
	}
	s.notifier.Publish(session.Event{Type: session.EventSignedOut, UserID: sess.UserID, Role: sess.Role})
	return nil
}

// passwordFingerprint ties a reset token to the password it was issued against,
// so the token stops working once the password changes.
func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// RequestPasswordReset returns the reset token, or "" for unknown or inactive accounts.
// Callers must not reveal which case occurred.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive() {
		return "", nil
	}
	token, err := s.tokens.Generate(jwt.Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Purpose:     jwt.PurposePasswordReset,
		Fingerprint: passwordFingerprint(user.Password),
	}, s.cfg.ResetTokenTTL)
	if err != nil {
		return "", err
	}
	// no mail transport; operators pick the token up from the log
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "reset_token": token}).Info("password reset requested")
	return token, nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, req *PasswordResetConfirmRequest) error {
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := validate(req); err != nil {
		return err
	}
	claims, err := s.tokens.Validate(req.Token, jwt.PurposePasswordReset)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jwt.ErrInvalidToken
		}
		return err
	}
	if passwordFingerprint(user.Password) != claims.Fingerprint {
		return jwt.ErrInvalidToken
	}
	return s.replacePassword(ctx, user, req.Password)
}

func (s *authService) ChangePassword(ctx context.Context, sess *session.Session, req *ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := validate(req); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return storeErr(err, notFound("user"))
	}
	if !user.CheckPassword(req.OldPassword) {
		return ErrWrongPassword
	}
	return s.replacePassword(ctx, user, req.NewPassword)
}

// replacePassword stores a new hash and rotates the token version, ending every session.
func (s *authService) replacePassword(ctx context.Context, user *model.User, password string) error {
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Password, uuid.NewString()); err != nil {
		return err
	}
	s.notifier.Publish(session.Event{Type: session.EventPasswordChanged, UserID: user.ID, Role: user.RoleCode()})
	s.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// ValidateToken resolves a bearer token to a session. Role and privileges come from
// the store, never from the token.
func (s *authService) ValidateToken(ctx context.Context, token string) (*session.Session, error) {
	claims, err := s.tokens.Validate(token, jwt.PurposeAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}
	if s.cfg.IdleTimeout > 0 && (user.LastSeenAt == nil || s.now().Sub(*user.LastSeenAt) > s.cfg.IdleTimeout) {
		return nil, ErrSessionExpired
	}
	return session.FromUser(user, s.caps), nil
}

func (s *authService) Heartbeat(ctx context.Context, sess *session.Session) error {
	if err := s.users.UpdateLastSeen(ctx, sess.UserID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(ws.EventUserStatus, map[string]any{
			"user_id":      sess.UserID,
			"status":       "online",
			"last_seen_at": s.now(),
		})
	}
	return nil
}
