package model

import (
	"time"
)

// Plan 可订阅的电力套餐，price 为每日价格
type Plan struct {
	ID          int64     `gorm:"primaryKey" json:"plan_id"`
	PlanName    string    `gorm:"size:100;not null;index" json:"plan_name"`
	Location    string    `gorm:"size:100;not null;index" json:"location"`
	Price       float64   `gorm:"type:decimal(12,4);not null" json:"price"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}
