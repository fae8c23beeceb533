package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
)

// TestPassword 测试用户的明文密码
const TestPassword = "Secret#123"

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// Date 构造 UTC 日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TestUser 创建测试用户，默认已审批
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	email := fmt.Sprintf("test_%d@example.com", n)
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	passwordHash := string(hash)
	user := &model.User{
		FullName:     fmt.Sprintf("Test User %d", n),
		Email:        &email,
		PhoneNumber:  "(555)-123-4567",
		SSN:          "123-45-6789",
		AddressLine1: "1 Main St",
		ZipCode:      "10001",
		PasswordHash: &passwordHash,
		Role:         model.RoleCustomer,
		Status:       model.UserStatusApproved,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithFullName 设置姓名
func WithFullName(name string) func(*model.User) {
	return func(u *model.User) {
		u.FullName = name
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithUserStatus 设置注册状态
func WithUserStatus(status string) func(*model.User) {
	return func(u *model.User) {
		u.Status = status
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithGithubID 设置 GitHub ID，并清空密码
func WithGithubID(id string) func(*model.User) {
	return func(u *model.User) {
		u.GithubID = &id
		u.PasswordHash = nil
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		PlanName:    fmt.Sprintf("Plan %d", nextSeq()),
		Location:    "Springfield",
		Price:       10,
		Description: "test plan",
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithPlanName 设置套餐名
func WithPlanName(name string) func(*model.Plan) {
	return func(p *model.Plan) {
		p.PlanName = name
	}
}

// WithLocation 设置地点
func WithLocation(location string) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Location = location
	}
}

// WithPrice 设置每日价格
func WithPrice(price float64) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Price = price
	}
}

// TestUserPlan 按套餐创建订阅，默认已审批，覆盖 2024-01-01 ~ 2024-12-31
func TestUserPlan(t *testing.T, db *gorm.DB, user *model.User, plan *model.Plan, opts ...func(*model.UserPlan)) *model.UserPlan {
	t.Helper()

	up := &model.UserPlan{
		PlanID:        plan.ID,
		PlanName:      plan.PlanName,
		Price:         plan.Price,
		Location:      plan.Location,
		UserID:        user.ID,
		RequestedBy:   user.FullName,
		RequestedDate: Date(2024, time.January, 1),
		RequiredFrom:  Date(2024, time.January, 1),
		RequiredTo:    Date(2024, time.December, 31),
		Status:        model.UserPlanStatusApproved,
	}

	for _, opt := range opts {
		opt(up)
	}

	if err := db.Create(up).Error; err != nil {
		t.Fatalf("Failed to create test user plan: %v", err)
	}

	return up
}

// WithUserPlanStatus 设置订阅状态
func WithUserPlanStatus(status string) func(*model.UserPlan) {
	return func(up *model.UserPlan) {
		up.Status = status
	}
}

// WithRequired 设置订阅起止日期
func WithRequired(from, to time.Time) func(*model.UserPlan) {
	return func(up *model.UserPlan) {
		up.RequiredFrom = from
		up.RequiredTo = to
	}
}

// WithAutoTerminated 设置到期自动终止
func WithAutoTerminated() func(*model.UserPlan) {
	return func(up *model.UserPlan) {
		up.AutoTerminated = true
	}
}

// WithAlertRequired 设置到期提醒
func WithAlertRequired() func(*model.UserPlan) {
	return func(up *model.UserPlan) {
		up.AlertRequired = true
	}
}

// TestBillJob 创建测试归档任务
func TestBillJob(t *testing.T, db *gorm.DB, userID int64, status string) *model.BillJob {
	t.Helper()

	job := &model.BillJob{
		UserID:      userID,
		PeriodStart: Date(2024, time.January, 1),
		PeriodEnd:   Date(2024, time.January, 31),
		Source:      model.JobSourceManual,
		Status:      status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
