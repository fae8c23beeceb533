package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return buildUserInfo(user), nil
}

// UpdateProfile 更新联系方式和地址，SSN 与邮箱不可修改
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, ErrInvalidFullName
		}
		user.FullName = name
	}
	if req.PhoneNumber != nil {
		if err := ValidatePhone(*req.PhoneNumber); err != nil {
			return nil, err
		}
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.AddressLine1 != nil {
		user.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		user.AddressLine2 = *req.AddressLine2
	}
	if req.ZipCode != nil {
		if strings.TrimSpace(*req.ZipCode) == "" {
			return nil, ErrInvalidZipCode
		}
		user.ZipCode = *req.ZipCode
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return buildUserInfo(user), nil
}
