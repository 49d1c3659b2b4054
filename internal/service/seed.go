package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
)

// AdminSeed is the first super admin created on an empty database.
type AdminSeed struct {
	Email    string
	Password string
	FullName string
}

// Seed creates the default privileges and roles, syncs each role's grants with the
// access policy and creates the admin account when it does not exist. It is safe to
// run on every start.
func Seed(
	ctx context.Context,
	privileges repository.PrivilegeRepository,
	roles repository.RoleRepository,
	users repository.UserRepository,
	admin AdminSeed,
	log logrus.FieldLogger,
) error {
	if err := privileges.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	for _, def := range model.DefaultRoles {
		role, err := roles.FindByCode(ctx, def.Code)
		if err != nil {
			return fmt.Errorf("load role %s: %w", def.Code, err)
		}
		grants, err := privileges.FindByCodes(ctx, access.GrantsFor(def.Code))
		if err != nil {
			return fmt.Errorf("load grants for %s: %w", def.Code, err)
		}
		if err := roles.ReplacePrivileges(ctx, role, grants); err != nil {
			return fmt.Errorf("grant %s: %w", def.Code, err)
		}
		log.WithFields(logrus.Fields{"role": def.Code, "privileges": len(grants)}).Debug("role grants synced")
	}

	if admin.Email == "" {
		return nil
	}
	email := normalizeEmail(admin.Email)
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	role, err := roles.FindByCode(ctx, model.RoleSuperAdmin)
	if err != nil {
		return err
	}
	name := admin.FullName
	if name == "" {
		name = "Super Administrator"
	}
	user := &model.User{Email: email, InitialFullName: name, InitialRoleID: &role.ID}
	user.Stamp("system")
	if err := user.SetPassword(admin.Password); err != nil {
		return err
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.WithField("email", email).Info("admin user created")
	return nil
}
