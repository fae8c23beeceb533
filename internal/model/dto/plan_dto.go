package dto

// PlanRequest 创建/更新套餐请求
type PlanRequest struct {
	PlanName    string   `json:"planName" binding:"required,max=100"`
	Location    string   `json:"location" binding:"required,max=100"`
	Price       *float64 `json:"price" binding:"required"`
	Description string   `json:"description" binding:"max=2000"`
}

// PlanFilter 套餐查询条件，均为不区分大小写的子串匹配
type PlanFilter struct {
	Location string `form:"location"`
	Name     string `form:"name"`
}

// SubscribeRequest 订阅请求，日期格式 yyyy-MM-dd
type SubscribeRequest struct {
	PlanID         int64  `json:"planId" binding:"required"`
	RequiredFrom   string `json:"requiredFrom" binding:"required"`
	RequiredTo     string `json:"requiredTo" binding:"required"`
	AutoTerminated bool   `json:"autoTerminated"`
	AlertRequired  bool   `json:"alertRequired"`
}

// UserPlanItem 订阅列表项
type UserPlanItem struct {
	UserPlanID       int64   `json:"userPlanId"`
	PlanID           int64   `json:"planId"`
	PlanName         string  `json:"planName"`
	Price            float64 `json:"price"`
	Location         string  `json:"location"`
	UserID           int64   `json:"userId"`
	RequestedBy      string  `json:"requestedBy"`
	RequestedDate    string  `json:"requestedDate"`
	RequiredFrom     string  `json:"requiredFrom"`
	RequiredTo       string  `json:"requiredTo"`
	AutoTerminated   bool    `json:"autoTerminated"`
	AlertRequired    bool    `json:"alertRequired"`
	Status           string  `json:"status"`
	RejectionComment string  `json:"rejectionComment,omitempty"`
}

// UserPlansResponse 按状态分组的订阅
type UserPlansResponse struct {
	Approved []*UserPlanItem `json:"approved"`
	Rejected []*UserPlanItem `json:"rejected"`
	Pending  []*UserPlanItem `json:"pending"`
}
