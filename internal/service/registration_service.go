package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var (
	ErrCommentRequired = errors.New("拒绝时必须填写原因")
	ErrAlreadyDecided  = errors.New("该申请已处理")
)

const pendingCacheKey = "pending"

type RegistrationService struct {
	userRepo  *repository.UserRepository
	cfg       *config.RegistrationConfig
	clock     clock.Clock
	mailer    *email.Service
	publisher Publisher
	metrics   *metrics.Metrics
	cache     *expirable.LRU[string, []*model.User]
	log       *logrus.Entry
}

func NewRegistrationService(
	userRepo *repository.UserRepository,
	cfg *config.RegistrationConfig,
	clk clock.Clock,
	mailer *email.Service,
	publisher Publisher,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *RegistrationService {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RegistrationService{
		userRepo:  userRepo,
		cfg:       cfg,
		clock:     clk,
		mailer:    mailer,
		publisher: publisher,
		metrics:   m,
		cache:     expirable.NewLRU[string, []*model.User](1, nil, ttl),
		log:       logger.Component(log, "registration"),
	}
}

// ListPending 待审批注册，按姓名排序；缓存过期或 refresh 时重新查询
func (s *RegistrationService) ListPending(refresh bool) ([]*dto.RegistrationItem, error) {
	users, err := s.pendingUsers(refresh)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.RegistrationItem, 0, len(users))
	for _, u := range users {
		items = append(items, &dto.RegistrationItem{
			ID:           u.ID,
			FullName:     u.FullName,
			Email:        u.EmailAddress(),
			PhoneNumber:  u.PhoneNumber,
			MaskedSSN:    MaskSSN(u.SSN),
			AddressLine1: u.AddressLine1,
			AddressLine2: u.AddressLine2,
			ZipCode:      u.ZipCode,
			CreatedAt:    u.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

func (s *RegistrationService) pendingUsers(refresh bool) ([]*model.User, error) {
	if !refresh {
		if users, ok := s.cache.Get(pendingCacheKey); ok {
			return users, nil
		}
	}

	users, err := s.userRepo.ListByStatus(model.UserStatusPending)
	if err != nil {
		return nil, err
	}
	s.cache.Add(pendingCacheKey, users)
	return users, nil
}

// Approve 审批通过
func (s *RegistrationService) Approve(ctx context.Context, userID int64) error {
	err := s.decide(ctx, userID, model.UserStatusApproved, "")
	s.cache.Remove(pendingCacheKey)
	return err
}

// Reject 拒绝注册，必须填写原因
func (s *RegistrationService) Reject(ctx context.Context, userID int64, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return ErrCommentRequired
	}
	err := s.decide(ctx, userID, model.UserStatusRejected, comment)
	s.cache.Remove(pendingCacheKey)
	return err
}

// ApproveAll 分批审批全部待审批注册
func (s *RegistrationService) ApproveAll(ctx context.Context) (*dto.BatchDecisionResponse, error) {
	return s.decideAll(ctx, model.UserStatusApproved, "")
}

// RejectAll 分批拒绝全部待审批注册
func (s *RegistrationService) RejectAll(ctx context.Context, comment string) (*dto.BatchDecisionResponse, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrCommentRequired
	}
	return s.decideAll(ctx, model.UserStatusRejected, comment)
}

func (s *RegistrationService) decideAll(ctx context.Context, status, comment string) (*dto.BatchDecisionResponse, error) {
	defer s.cache.Remove(pendingCacheKey)

	users, err := s.userRepo.ListByStatus(model.UserStatusPending)
	if err != nil {
		return nil, err
	}

	processed, batches, err := runInBatches(ctx, users, s.cfg.BatchSize, func(ctx context.Context, u *model.User) error {
		return s.decide(ctx, u.ID, status, comment)
	})

	s.log.WithFields(logrus.Fields{
		"status":    status,
		"processed": processed,
		"batches":   batches,
	}).Info("batch registration decision")

	if err != nil {
		return nil, err
	}
	return &dto.BatchDecisionResponse{Processed: processed, Batches: batches}, nil
}

func (s *RegistrationService) decide(ctx context.Context, userID int64, status, comment string) error {
	affected, err := s.userRepo.Decide(userID, status, comment, s.clock.Now())
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if affected == 0 {
		return ErrAlreadyDecided
	}

	if s.metrics != nil {
		s.metrics.RegistrationOps.WithLabelValues(strings.ToLower(status)).Inc()
	}

	approved := status == model.UserStatusApproved
	if s.mailer != nil {
		if err := s.mailer.SendRegistrationDecision(user.EmailAddress(), user.FullName, approved, comment); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("failed to send registration email")
		}
	}
	publish(ctx, s.publisher, s.log, &pubsub.Message{
		Type:    pubsub.TypeRegistration,
		UserID:  userID,
		Status:  status,
		Message: comment,
	})

	return nil
}
