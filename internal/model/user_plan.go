package model

import (
	"time"
)

const (
	UserPlanStatusNew      = "new"
	UserPlanStatusApproved = "APPROVED"
	UserPlanStatusRejected = "REJECTED"
)

// UserPlan 用户订阅，套餐名称、价格、地点在订阅时拷贝，之后套餐调价不影响
type UserPlan struct {
	ID               int64      `gorm:"primaryKey" json:"user_plan_id"`
	PlanID           int64      `gorm:"not null;index" json:"plan_id"`
	PlanName         string     `gorm:"size:100;not null" json:"plan_name"`
	Price            float64    `gorm:"type:decimal(12,4);not null" json:"price"`
	Location         string     `gorm:"size:100" json:"location"`
	UserID           int64      `gorm:"not null;index" json:"user_id"`
	RequestedBy      string     `gorm:"size:100" json:"requested_by"`
	RequestedDate    time.Time  `gorm:"type:date" json:"requested_date"`
	RequiredFrom     time.Time  `gorm:"type:date;not null" json:"required_from"`
	RequiredTo       time.Time  `gorm:"type:date;not null;index" json:"required_to"`
	AutoTerminated   bool       `gorm:"default:false" json:"auto_terminated"`
	AlertRequired    bool       `gorm:"default:false" json:"alert_required"`
	AlertSentAt      *time.Time `json:"-"`
	Status           string     `gorm:"size:20;default:new;index" json:"status"` // new, APPROVED, REJECTED
	RejectionComment string     `gorm:"type:text" json:"rejection_comment,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (UserPlan) TableName() string {
	return "user_plans"
}
