package dto

// PeriodQuery 账单周期参数，period 为 current / previous / custom
type PeriodQuery struct {
	Period string `form:"period"`
	Start  string `form:"start"`
	End    string `form:"end"`
}

// BillCalculationResponse 单个订阅的账单计算结果，金额保留两位小数
type BillCalculationResponse struct {
	UserPlanID   int64  `json:"userPlanId"`
	PlanName     string `json:"planName"`
	Model        string `json:"model"`
	PeriodStart  string `json:"periodStart"`
	PeriodEnd    string `json:"periodEnd"`
	DaysInPeriod int    `json:"daysInPeriod"`
	DailyRate    string `json:"dailyRate"`
	BaseCharge   string `json:"baseCharge"`
	UsageCharge  string `json:"usageCharge"`
	TotalUsage   string `json:"totalUsage"`
	TaxAmount    string `json:"taxAmount"`
	TotalAmount  string `json:"totalAmount"`
}

// InsightItem 单个套餐的用量概览
type InsightItem struct {
	PlanName          string `json:"planName"`
	Location          string `json:"location"`
	DailyUsage        string `json:"dailyUsage"`
	MonthToDateAmount string `json:"monthToDateAmount"`
}

// InsightsResponse 用量概览
type InsightsResponse struct {
	AsOf              string         `json:"asOf"`
	Plans             []*InsightItem `json:"plans"`
	TotalAmount       string         `json:"totalAmount"`
	PlanCount         int            `json:"planCount"`
	AverageDailyUsage string         `json:"averageDailyUsage"`
	ProjectedAnnual   string         `json:"projectedAnnual"`
}

// ArchiveResponse 创建归档任务响应
type ArchiveResponse struct {
	JobID int64 `json:"job_id"`
}

// BillJobItem 归档任务
type BillJobItem struct {
	ID           int64  `json:"id"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	CurrentStep  string `json:"current_step,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileURL      string `json:"file_url,omitempty"`
	TotalAmount  string `json:"total_amount,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}
