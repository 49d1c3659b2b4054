package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is the authentication principal. Descriptive data and the role live on Profile.
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"` // For single session enforcement
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	Profile      *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`

	// Seed values for the profile created alongside the user.
	InitialFullName string `gorm:"-" json:"-"`
	InitialPhone    string `gorm:"-" json:"-"`
	InitialRoleID   *uint  `gorm:"-" json:"-"`
}

// Profile is linked 1:1 to a User and carries the role.
type Profile struct {
	BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	FullName string    `gorm:"type:varchar(255)" json:"full_name"`
	Phone    string    `gorm:"type:varchar(32)" json:"phone"`
	RoleID   uint      `gorm:"index;not null" json:"role_id"`
	Role     *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
}

// AfterCreate gives every new user exactly one profile. Unless the creator picked a role,
// the profile gets DefaultSignupRole.
func (u *User) AfterCreate(tx *gorm.DB) error {
	roleID := u.InitialRoleID
	if roleID == nil {
		var role Role
		if err := tx.Where("code = ?", DefaultSignupRole).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("default role is not seeded")
			}
			return err
		}
		roleID = &role.ID
	}

	profile := &Profile{
		UserID:   u.ID,
		FullName: u.InitialFullName,
		Phone:    u.InitialPhone,
		RoleID:   *roleID,
		IsActive: true,
	}
	profile.CreatedBy = u.CreatedBy
	profile.UpdatedBy = u.CreatedBy
	if err := tx.Create(profile).Error; err != nil {
		return err
	}
	u.Profile = profile
	return nil
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// RoleCode returns the profile's role code or "" when it was not preloaded.
func (u *User) RoleCode() string {
	if u.Profile == nil || u.Profile.Role == nil {
		return ""
	}
	return u.Profile.Role.Code
}

// IsActive is false for users without a profile.
func (u *User) IsActive() bool {
	return u.Profile != nil && u.Profile.IsActive
}

// GetPrivilegeCodes returns the privileges granted through the user's role.
func (u *User) GetPrivilegeCodes() []string {
	if u.Profile == nil || u.Profile.Role == nil {
		return []string{}
	}
	return u.Profile.Role.PrivilegeCodes()
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Phone      string     `json:"phone"`
	Role       string     `json:"role"`
	RoleID     uint       `json:"role_id"`
	IsActive   bool       `json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	resp := UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.RoleCode(),
		LastSeenAt: u.LastSeenAt,
		CreatedAt:  u.CreatedAt,
	}
	if u.Profile != nil {
		resp.FullName = u.Profile.FullName
		resp.Phone = u.Profile.Phone
		resp.RoleID = u.Profile.RoleID
		resp.IsActive = u.Profile.IsActive
	}
	return resp
}
