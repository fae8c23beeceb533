package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/invoice"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metering"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/report"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var ErrPlanNotApproved = errors.New("订阅尚未审批通过")

// Meter 用量来源，metering.Client 实现了该接口
type Meter interface {
	CalculateAndStoreBill(ctx context.Context, userPlanID int64, start, end time.Time) metering.Usage
}

type BillingService struct {
	userPlanRepo *repository.UserPlanRepository
	userRepo     *repository.UserRepository
	calculator   billing.Calculator
	renderer     *invoice.Renderer
	meter        Meter
	clock        clock.Clock
	metrics      *metrics.Metrics
	log          *logrus.Entry
}

func NewBillingService(
	userPlanRepo *repository.UserPlanRepository,
	userRepo *repository.UserRepository,
	calculator billing.Calculator,
	renderer *invoice.Renderer,
	meter Meter,
	clk clock.Clock,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *BillingService {
	return &BillingService{
		userPlanRepo: userPlanRepo,
		userRepo:     userRepo,
		calculator:   calculator,
		renderer:     renderer,
		meter:        meter,
		clock:        clk,
		metrics:      m,
		log:          logger.Component(log, "billing"),
	}
}

// ResolvePeriod 以当前时钟为 asOf 计算账单周期
func (s *BillingService) ResolvePeriod(q *dto.PeriodQuery) (billing.Period, error) {
	return billing.ResolvePeriod(q.Period, s.clock.Now(), q.Start, q.End)
}

// Calculate 计算单个订阅的账单，按配置的计费模型
func (s *BillingService) Calculate(ctx context.Context, userID, userPlanID int64, q *dto.PeriodQuery) (*dto.BillCalculationResponse, error) {
	up, err := s.approvedPlan(userID, userPlanID)
	if err != nil {
		return nil, err
	}
	period, err := s.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}

	in := billing.Input{Price: up.Price, Start: period.Start, End: period.End}
	if s.calculator.RequiresUsage() {
		usage := metering.Unavailable("metering service not configured")
		if s.meter != nil {
			usage = s.meter.CalculateAndStoreBill(ctx, up.ID, period.Start, period.End)
		}
		if !usage.Available {
			s.fail("usage_unavailable")
			s.log.WithFields(logrus.Fields{
				"user_plan_id": up.ID,
				"reason":       usage.Reason,
			}).Warn("usage unavailable")
			return nil, fmt.Errorf("%w: %s", billing.ErrUpstreamFailure, usage.Reason)
		}
		in.UsageKWh = usage.KWh
	}

	calc, err := s.calculator.Calculate(in)
	if err != nil {
		return nil, err
	}
	s.generated("calculation")

	return &dto.BillCalculationResponse{
		UserPlanID:   up.ID,
		PlanName:     up.PlanName,
		Model:        calc.Model,
		PeriodStart:  period.Start.Format(billing.DateLayout),
		PeriodEnd:    period.End.Format(billing.DateLayout),
		DaysInPeriod: calc.DaysInPeriod,
		DailyRate:    billing.FormatMoney(calc.DailyRate),
		BaseCharge:   billing.FormatMoney(calc.BaseCharge),
		UsageCharge:  billing.FormatMoney(calc.UsageCharge),
		TotalUsage:   calc.TotalUsage.StringFixed(billing.MoneyPlaces),
		TaxAmount:    billing.FormatMoney(calc.TaxAmount),
		TotalAmount:  billing.FormatMoney(calc.TotalAmount),
	}, nil
}

// DownloadPlan 生成单个订阅的账单 PDF
func (s *BillingService) DownloadPlan(userID, userPlanID int64, q *dto.PeriodQuery) (*invoice.Document, error) {
	up, err := s.approvedPlan(userID, userPlanID)
	if err != nil {
		return nil, err
	}
	period, err := s.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}
	user, err := s.user(userID)
	if err != nil {
		return nil, err
	}

	return s.render(invoice.Request{
		CustomerName: user.FullName,
		Period:       period,
		Items:        []billing.Item{toItem(up)},
		AsOf:         s.clock.Now(),
	}, "single")
}

// DownloadAll 生成全部已审批订阅的合并账单 PDF
func (s *BillingService) DownloadAll(userID int64, q *dto.PeriodQuery) (*invoice.Document, error) {
	period, err := s.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}
	return s.RenderStatement(userID, period, s.clock.Now())
}

// RenderStatement 生成合并账单，没有已审批订阅时返回 ErrEmptyInput
func (s *BillingService) RenderStatement(userID int64, period billing.Period, asOf time.Time) (*invoice.Document, error) {
	if _, err := period.Days(); err != nil {
		return nil, err
	}

	ups, err := s.userPlanRepo.ListApprovedByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, billing.ErrEmptyInput
	}

	user, err := s.user(userID)
	if err != nil {
		return nil, err
	}

	items := make([]billing.Item, 0, len(ups))
	for _, up := range ups {
		items = append(items, toItem(up))
	}

	return s.render(invoice.Request{
		CustomerName: user.FullName,
		Period:       period,
		Items:        items,
		Consolidated: true,
		AsOf:         asOf,
	}, "consolidated")
}

func (s *BillingService) render(req invoice.Request, kind string) (*invoice.Document, error) {
	doc, err := s.renderer.Render(req)
	if err != nil {
		if errors.Is(err, billing.ErrEmptyInput) || errors.Is(err, billing.ErrInvalidRange) {
			return nil, err
		}
		s.fail("render")
		s.log.WithError(err).WithField("kind", kind).Error("failed to render bill")
		return nil, fmt.Errorf("%w: %v", billing.ErrUpstreamFailure, err)
	}

	s.generated(kind)
	s.log.WithFields(logrus.Fields{
		"kind":  kind,
		"name":  doc.Name,
		"pages": doc.Pages,
		"total": billing.FormatMoney(doc.Total),
	}).Info("bill rendered")
	return doc, nil
}

// Insights 本月用量概览
func (s *BillingService) Insights(userID int64) (*billing.Insights, error) {
	ups, err := s.userPlanRepo.ListApprovedByUserID(userID)
	if err != nil {
		return nil, err
	}
	items := make([]billing.Item, 0, len(ups))
	for _, up := range ups {
		items = append(items, toItem(up))
	}
	return billing.BuildInsights(items, s.clock.Now())
}

// ExportInsights 导出用量概览为 xlsx，返回文件名和内容
func (s *BillingService) ExportInsights(userID int64) (string, []byte, error) {
	ins, err := s.Insights(userID)
	if err != nil {
		return "", nil, err
	}
	data, err := report.InsightsWorkbook(ins)
	if err != nil {
		return "", nil, err
	}
	return report.InsightsFileName(ins), data, nil
}

// ToInsightsResponse 转换为接口返回格式
func ToInsightsResponse(ins *billing.Insights) *dto.InsightsResponse {
	resp := &dto.InsightsResponse{
		AsOf:              ins.AsOf.Format(billing.DateLayout),
		Plans:             make([]*dto.InsightItem, 0, len(ins.Plans)),
		TotalAmount:       billing.FormatMoney(ins.Total),
		PlanCount:         ins.PlanCount,
		AverageDailyUsage: billing.FormatMoney(ins.AverageDailyUsage),
		ProjectedAnnual:   billing.FormatMoney(ins.ProjectedAnnual),
	}
	for _, p := range ins.Plans {
		resp.Plans = append(resp.Plans, &dto.InsightItem{
			PlanName:          p.PlanName,
			Location:          p.Location,
			DailyUsage:        billing.FormatMoney(p.DailyUsage),
			MonthToDateAmount: billing.FormatMoney(p.MonthToDate),
		})
	}
	return resp
}

func (s *BillingService) approvedPlan(userID, userPlanID int64) (*model.UserPlan, error) {
	up, err := s.userPlanRepo.GetByID(userPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserPlanNotFound
		}
		return nil, err
	}
	if up.UserID != userID {
		return nil, ErrUserPlanNoAccess
	}
	if up.Status != model.UserPlanStatusApproved {
		return nil, ErrPlanNotApproved
	}
	if up.RequiredTo.Before(up.RequiredFrom) {
		return nil, billing.ErrInvalidRange
	}
	return up, nil
}

func (s *BillingService) user(userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *BillingService) generated(kind string) {
	if s.metrics != nil {
		s.metrics.BillsGenerated.WithLabelValues(s.calculator.Model(), kind).Inc()
	}
}

func (s *BillingService) fail(reason string) {
	if s.metrics != nil {
		s.metrics.BillFailures.WithLabelValues(reason).Inc()
	}
}

func toItem(up *model.UserPlan) billing.Item {
	return billing.Item{
		PlanName: up.PlanName,
		Location: up.Location,
		Price:    up.Price,
	}
}
