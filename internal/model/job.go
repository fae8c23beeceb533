package model

import (
	"time"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"

	JobSourceManual = "manual"
	JobSourceCron   = "cron"
)

// BillJob 合并账单归档任务
type BillJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	PeriodStart    time.Time  `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd      time.Time  `gorm:"type:date;not null" json:"period_end"`
	Source         string     `gorm:"size:20;default:manual" json:"source"` // manual, cron
	Status         string     `gorm:"size:20;default:queued;index" json:"status"`
	CurrentStep    string     `gorm:"size:50" json:"current_step,omitempty"`
	Attempts       int        `gorm:"default:0" json:"attempts"`
	NoRetry        bool       `gorm:"not null;default:false" json:"-"` // 重试也无法成功的失败，如没有已审批订阅
	FileName       string     `gorm:"size:200" json:"file_name,omitempty"`
	ObjectKey      string     `gorm:"size:500" json:"-"`
	FileURL        string     `gorm:"size:1000" json:"file_url,omitempty"`
	TotalAmount    string     `gorm:"size:32" json:"total_amount,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (BillJob) TableName() string {
	return "bill_jobs"
}
