package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/jwt"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/oauth"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var (
	ErrEmailExists          = errors.New("邮箱已被注册")
	ErrInvalidCredentials   = errors.New("邮箱或密码错误")
	ErrAwaitingApproval     = errors.New("注册申请正在审批中")
	ErrRegistrationRejected = errors.New("注册申请已被拒绝")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrGithubDisabled       = errors.New("未配置 GitHub 登录")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
	log         *logrus.Entry
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		cfg:         cfg,
		githubOAuth: oauth.NewGithubOAuth(cfg.OAuth.Github),
		log:         logger.Component(log, "auth"),
	}
}

// Register 用户注册，新用户处于 pending 状态，需管理员审批后才能登录
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordStr := string(hashedPassword)

	user := &model.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        &email,
		PhoneNumber:  req.PhoneNumber,
		SSN:          req.SSN,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		ZipCode:      req.ZipCode,
		PasswordHash: &passwordStr,
		Role:         model.RoleCustomer,
		Status:       model.UserStatusPending,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("registration submitted")

	return &dto.RegisterResponse{
		UserID: user.ID,
		Status: user.Status,
	}, nil
}

func validateRegistration(req *dto.RegisterRequest) error {
	if strings.TrimSpace(req.FullName) == "" {
		return ErrInvalidFullName
	}
	if err := ValidatePhone(req.PhoneNumber); err != nil {
		return err
	}
	if err := ValidateSSN(req.SSN); err != nil {
		return err
	}
	if strings.TrimSpace(req.ZipCode) == "" {
		return ErrInvalidZipCode
	}
	if err := ValidatePassword(req.Password); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMatch
	}
	return nil
}

// Login 用户登录，只有审批通过的用户才能拿到 token
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := checkApproved(user); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

func checkApproved(user *model.User) error {
	switch user.Status {
	case model.UserStatusApproved:
		return nil
	case model.UserStatusRejected:
		if user.RejectionComment != "" {
			return fmt.Errorf("%w: %s", ErrRegistrationRejected, user.RejectionComment)
		}
		return ErrRegistrationRejected
	default:
		return ErrAwaitingApproval
	}
}

func (s *AuthService) issueToken(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, user.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	return s.userRepo.GetByID(id)
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:           user.ID,
		FullName:     user.FullName,
		Email:        user.EmailAddress(),
		PhoneNumber:  user.PhoneNumber,
		AddressLine1: user.AddressLine1,
		AddressLine2: user.AddressLine2,
		ZipCode:      user.ZipCode,
		Role:         user.Role,
		Status:       user.Status,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
}

// GithubEnabled 是否可以使用 GitHub 登录
func (s *AuthService) GithubEnabled() bool {
	return s.githubOAuth.Enabled()
}

// GetGithubAuthURL 获取 GitHub 授权 URL
func (s *AuthService) GetGithubAuthURL(state string) string {
	return s.githubOAuth.GetAuthURL(state)
}

// GithubCallback 处理 GitHub OAuth 回调
// 首次登录的 GitHub 用户创建为待审批注册
func (s *AuthService) GithubCallback(ctx context.Context, code string) (*dto.LoginResponse, error) {
	if !s.githubOAuth.Enabled() {
		return nil, ErrGithubDisabled
	}

	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get github user: %w", err)
	}

	return s.loginGithubUser(githubUser)
}

func (s *AuthService) loginGithubUser(githubUser *oauth.GithubUser) (*dto.LoginResponse, error) {
	githubIDStr := fmt.Sprintf("%d", githubUser.ID)

	user, err := s.userRepo.GetByGithubID(githubIDStr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user == nil {
		// 邮箱已注册过的账号直接关联 GitHub
		if githubUser.Email != "" {
			existing, err := s.userRepo.GetByEmail(strings.ToLower(githubUser.Email))
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			if existing != nil {
				if err := s.userRepo.UpdateFields(existing.ID, map[string]interface{}{"github_id": githubIDStr}); err != nil {
					return nil, err
				}
				existing.GithubID = &githubIDStr
				user = existing
			}
		}
	}

	if user == nil {
		user = &model.User{
			FullName: githubUser.DisplayName(),
			GithubID: &githubIDStr,
			Role:     model.RoleCustomer,
			Status:   model.UserStatusPending,
		}
		if githubUser.Email != "" {
			email := strings.ToLower(githubUser.Email)
			user.Email = &email
		}

		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"github_id": githubIDStr,
		}).Info("github registration submitted")
	}

	if err := checkApproved(user); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}
