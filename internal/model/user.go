package model

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	UserStatusPending  = "pending"
	UserStatusApproved = "APPROVED"
	UserStatusRejected = "REJECTED"
)

type User struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	FullName         string     `gorm:"size:100;not null;index" json:"full_name"`
	Email            *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PhoneNumber      string     `gorm:"size:20" json:"phone_number"`
	SSN              string     `gorm:"column:ssn;size:11" json:"-"`
	AddressLine1     string     `gorm:"size:200" json:"address_line1"`
	AddressLine2     string     `gorm:"size:200" json:"address_line2"`
	ZipCode          string     `gorm:"size:10" json:"zip_code"`
	PasswordHash     *string    `gorm:"size:255" json:"-"`
	GithubID         *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	Role             string     `gorm:"size:20;default:customer" json:"role"`
	Status           string     `gorm:"size:20;default:pending;index" json:"status"` // pending, APPROVED, REJECTED
	RejectionComment string     `gorm:"type:text" json:"rejection_comment,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// EmailAddress 空指针时返回空串
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
