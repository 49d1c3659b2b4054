package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
)

type UserService interface {
	CreateUser(ctx context.Context, sess *session.Session, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, sess *session.Session, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, sess *session.Session, userID uuid.UUID) error
	GetAllUsers(ctx context.Context, sess *session.Session) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.UserResponse, error)
	Me(ctx context.Context, sess *session.Session) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	RoleID   uint   `json:"role_id" validate:"required"`
}

type UpdateUserRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	FullName string  `json:"full_name" validate:"required,max=255"`
	Phone    string  `json:"phone" validate:"omitempty,phone"`
	RoleID   uint    `json:"role_id" validate:"required"`
	IsActive *bool   `json:"is_active"`
}

type userService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	notifier *session.Notifier
	log      logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, notifier *session.Notifier, log logrus.FieldLogger) UserService {
	return &userService{
		users:    users,
		roles:    roles,
		notifier: notifier,
		log:      log.WithField("module", "users"),
	}
}

func requireSuperAdmin(sess *session.Session) error {
	if !sess.IsSuperAdmin() {
		return ErrAccessDenied
	}
	return nil
}

func (s *userService) role(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("role_id", "unknown role")
		}
		return nil, err
	}
	return role, nil
}

func (s *userService) CreateUser(ctx context.Context, sess *session.Session, req *CreateUserRequest) (*model.UserResponse, error) {
	if err := requireSuperAdmin(sess); err != nil {
		return nil, err
	}
	req.Email = normalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, err
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrEmailExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user := &model.User{
		Email:           req.Email,
		InitialFullName: strings.TrimSpace(req.FullName),
		InitialPhone:    req.Phone,
		InitialRoleID:   &role.ID,
	}
	user.Stamp(sess.Actor())
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
	s.log.WithFields(logrus.Fields{"user_id": created.ID, "role": role.Code, "by": sess.Actor()}).Info("user created")
	resp := created.ToResponse()
	return &resp, nil
}

// UpdateUser edits a profile. A super admin may not demote or deactivate themself,
// so the system always keeps at least the acting administrator.
func (s *userService) UpdateUser(ctx context.Context, sess *session.Session, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	if err := requireSuperAdmin(sess); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, notFound("user"))
	}
	if user.Profile == nil {
		return nil, notFound("profile")
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	self := userID == sess.UserID
	if self && role.Code != model.RoleSuperAdmin {
		return nil, invalid("role_id", "you cannot change your own role")
	}
	if self && req.IsActive != nil && !*req.IsActive {
		return nil, invalid("is_active", "you cannot deactivate yourself")
	}

	profile := user.Profile
	roleChanged := profile.RoleID != role.ID
	deactivated := profile.IsActive && req.IsActive != nil && !*req.IsActive

	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Phone = req.Phone
	profile.RoleID = role.ID
	profile.Role = nil
	if req.IsActive != nil {
		profile.IsActive = *req.IsActive
	}
	profile.UpdatedBy = sess.Actor()

	var hashed, version *string
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
		hashed = &user.Password
	}
	if hashed != nil || deactivated {
		v := uuid.NewString()
		version = &v
	}
	if err := s.users.UpdateAccount(ctx, profile, hashed, version); err != nil {
		return nil, err
	}

	if hashed != nil {
		s.notifier.Publish(session.Event{Type: session.EventPasswordChanged, UserID: userID, Role: role.Code})
	}
	if deactivated {
		s.notifier.Publish(session.Event{Type: session.EventSignedOut, UserID: userID, Role: role.Code})
	}
	if roleChanged {
		s.notifier.Publish(session.Event{Type: session.EventRoleChanged, UserID: userID, Role: role.Code})
		s.log.WithFields(logrus.Fields{"user_id": userID, "role": role.Code, "by": sess.Actor()}).Info("user role changed")
	}

	updated, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := updated.ToResponse()
	return &resp, nil
}

func (s *userService) DeleteUser(ctx context.Context, sess *session.Session, userID uuid.UUID) error {
	if err := requireSuperAdmin(sess); err != nil {
		return err
	}
	if userID == sess.UserID {
		return invalid("id", "you cannot delete yourself")
	}
	if err := s.users.Delete(ctx, userID, sess.Actor()); err != nil {
		return storeErr(err, notFound("user"))
	}
	s.notifier.Publish(session.Event{Type: session.EventSignedOut, UserID: userID})
	s.log.WithFields(logrus.Fields{"user_id": userID, "by": sess.Actor()}).Info("user deleted")
	return nil
}

func (s *userService) GetAllUsers(ctx context.Context, sess *session.Session) ([]model.UserResponse, error) {
	if err := requireSuperAdmin(sess); err != nil {
		return nil, err
	}
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

// GetUserByID applies the profile scope: outside it, other users look missing.
func (s *userService) GetUserByID(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.UserResponse, error) {
	if sess == nil {
		return nil, ErrAccessDenied
	}
	if access.ProfileScope(sess.Role) != access.ScopeAll && id != sess.UserID {
		return nil, notFound("user")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, notFound("user"))
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) Me(ctx context.Context, sess *session.Session) (*model.UserResponse, error) {
	if sess == nil {
		return nil, ErrAccessDenied
	}
	return s.GetUserByID(ctx, sess, sess.UserID)
}
