package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

const (
	MaxFullNameLength = 255
	MaxEmailLength    = 255
)

// User is a directory entry mirrored from the identity provider. It is used
// to resolve notification recipients and to check assignees.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	FullName     string
	Email        string
	IsActive     bool
	CreatedAt    time.Time
	LastActiveAt *time.Time
}

// UserProfileParams holds the profile fields carried over from the identity provider.
type UserProfileParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
	Email    string
}

// Validate validates profile parameters
func (p *UserProfileParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.ID == uuid.Nil {
		errs.Add("id", "User ID is required")
	}
	if p.TenantID == uuid.Nil {
		errs.Add("tenantId", "Tenant ID is required")
	}

	fullName := strings.TrimSpace(p.FullName)
	if fullName == "" {
		errs.Add("fullName", "Full name is required")
	} else if len(fullName) > MaxFullNameLength {
		errs.Add("fullName", "Full name must be 255 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewUser creates a directory entry from validated profile parameters.
func NewUser(params UserProfileParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &User{
		ID:        params.ID,
		TenantID:  params.TenantID,
		FullName:  strings.TrimSpace(params.FullName),
		Email:     strings.ToLower(params.Email),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// BelongsTo reports whether the user is an active member of the tenant.
func (u *User) BelongsTo(tenantID uuid.UUID) bool {
	return u.IsActive && u.TenantID == tenantID
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
