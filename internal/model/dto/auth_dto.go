package dto

// RegisterRequest 注册请求，格式校验在 service 层完成
type RegisterRequest struct {
	FullName        string `json:"fullName" binding:"required,max=100"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	SSN             string `json:"ssn" binding:"required"`
	AddressLine1    string `json:"addressLine1" binding:"required,max=200"`
	AddressLine2    string `json:"addressLine2" binding:"max=200"`
	ZipCode         string `json:"zipCode" binding:"required,max=10"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	FullName     *string `json:"fullName,omitempty" binding:"omitempty,min=1,max=100"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	AddressLine1 *string `json:"addressLine1,omitempty" binding:"omitempty,max=200"`
	AddressLine2 *string `json:"addressLine2,omitempty" binding:"omitempty,max=200"`
	ZipCode      *string `json:"zipCode,omitempty" binding:"omitempty,max=10"`
}

// RegistrationItem 待审批注册（管理员视图）
type RegistrationItem struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	MaskedSSN    string `json:"ssn"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	ZipCode      string `json:"zip_code"`
	CreatedAt    string `json:"created_at"`
}

// DecisionRequest 审批拒绝时必须填写 comment
type DecisionRequest struct {
	Comment string `json:"comment"`
}

// BatchDecisionResponse 批量审批结果
type BatchDecisionResponse struct {
	Processed int `json:"processed"`
	Batches   int `json:"batches"`
}
