package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// ParseRole maps a free-form role to a Role. Empty input means customer.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RoleCustomer):
		return RoleCustomer, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// Profile is the public user record created at sign-up.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Name        string    `json:"name"`
	PhoneNumber *string   `json:"phone_number"`
	Role        Role      `gorm:"type:VARCHAR(20);default:'customer'" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdate holds the profile fields a user may change. Role is not one of them.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

func (u ProfileUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.PhoneNumber != nil {
		cols["phone_number"] = *u.PhoneNumber
	}
	return cols
}

// Credential is the auth subsystem's private record; never serialized.
type Credential struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

// AuthSession backs a signed session token so it can be revoked on sign-out.
type AuthSession struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// User is the client-side mirror of the signed-in profile.
type User struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Role              Role     `json:"role"`
	PurchasedProducts []string `json:"purchased_products"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPurchased reports whether productID is in the purchased list.
func (u *User) HasPurchased(productID string) bool {
	if u == nil {
		return false
	}
	for _, id := range u.PurchasedProducts {
		if id == productID {
			return true
		}
	}
	return false
}
