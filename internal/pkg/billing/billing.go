package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/powerplan_server/config"
)

var (
	ErrInvalidRange    = errors.New("end date is before start date")
	ErrEmptyInput      = errors.New("no plans available")
	ErrUpstreamFailure = errors.New("failed to generate bill")
	ErrUnknownModel    = errors.New("unknown billing model")
)

// MoneyPlaces 金额展示保留的小数位
const MoneyPlaces = 2

// Input 单个订阅的计费输入
type Input struct {
	Price    float64
	Start    time.Time
	End      time.Time
	UsageKWh float64
}

// Calculation 计费结果，字段保持完整精度，展示时再取整
type Calculation struct {
	Model        string
	DaysInPeriod int
	DailyRate    decimal.Decimal
	BaseCharge   decimal.Decimal
	UsageCharge  decimal.Decimal
	TotalUsage   decimal.Decimal
	TaxAmount    decimal.Decimal
	TotalAmount  decimal.Decimal
}

// Calculator 计费模型
type Calculator interface {
	Model() string
	// RequiresUsage 为 true 时调用方需要先从计量服务取得用量
	RequiresUsage() bool
	Calculate(in Input) (*Calculation, error)
}

// NewCalculator 按配置选择计费模型，默认为按天折算
func NewCalculator(cfg config.BillingConfig) (Calculator, error) {
	switch cfg.Model {
	case "", config.BillingModelProration:
		return ProrationCalculator{}, nil
	case config.BillingModelUsage:
		return NewUsageCalculator(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, cfg.Model)
	}
}

// DateOnly 去掉时分秒，只保留日历日期
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInclusive 计算闭区间 [start, end] 的天数
func DaysInclusive(start, end time.Time) (int, error) {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0, ErrInvalidRange
	}
	// Duration 只能表示约 292 年，按秒数换算
	return int((e.Unix()-s.Unix())/86400) + 1, nil
}

// CalculateBill 按天折算：price * days，四舍五入到分
func CalculateBill(pricePerDay float64, start, end time.Time) (decimal.Decimal, error) {
	days, err := DaysInclusive(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(pricePerDay).Mul(decimal.NewFromInt(int64(days))).Round(MoneyPlaces), nil
}

// FormatMoney 统一的金额展示格式
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// ProrationCalculator 按天折算模型
type ProrationCalculator struct{}

func (ProrationCalculator) Model() string       { return config.BillingModelProration }
func (ProrationCalculator) RequiresUsage() bool { return false }

func (ProrationCalculator) Calculate(in Input) (*Calculation, error) {
	days, err := DaysInclusive(in.Start, in.End)
	if err != nil {
		return nil, err
	}
	rate := decimal.NewFromFloat(in.Price)
	base := rate.Mul(decimal.NewFromInt(int64(days)))
	return &Calculation{
		Model:        config.BillingModelProration,
		DaysInPeriod: days,
		DailyRate:    rate,
		BaseCharge:   base,
		UsageCharge:  decimal.Zero,
		TotalUsage:   decimal.Zero,
		TaxAmount:    decimal.Zero,
		TotalAmount:  base.Round(MoneyPlaces),
	}, nil
}

// UsageCalculator 用量加税模型，price 视为月价
type UsageCalculator struct {
	DaysInMonth decimal.Decimal
	RatePerKwh  decimal.Decimal
	TaxRate     decimal.Decimal
}

func NewUsageCalculator(cfg config.BillingConfig) UsageCalculator {
	daysInMonth := cfg.DaysInMonth
	if daysInMonth <= 0 {
		daysInMonth = 30
	}
	return UsageCalculator{
		DaysInMonth: decimal.NewFromInt(int64(daysInMonth)),
		RatePerKwh:  decimal.NewFromFloat(cfg.RatePerKwh),
		TaxRate:     decimal.NewFromFloat(cfg.TaxRate),
	}
}

func (UsageCalculator) Model() string       { return config.BillingModelUsage }
func (UsageCalculator) RequiresUsage() bool { return true }

func (c UsageCalculator) Calculate(in Input) (*Calculation, error) {
	days, err := DaysInclusive(in.Start, in.End)
	if err != nil {
		return nil, err
	}

	usage := decimal.NewFromFloat(in.UsageKWh)
	dailyRate := decimal.NewFromFloat(in.Price).Div(c.DaysInMonth)
	base := dailyRate.Mul(decimal.NewFromInt(int64(days)))
	usageCharge := usage.Mul(c.RatePerKwh)
	tax := base.Add(usageCharge).Mul(c.TaxRate)

	return &Calculation{
		Model:        config.BillingModelUsage,
		DaysInPeriod: days,
		DailyRate:    dailyRate,
		BaseCharge:   base,
		UsageCharge:  usageCharge,
		TotalUsage:   usage,
		TaxAmount:    tax,
		TotalAmount:  base.Add(usageCharge).Add(tax),
	}, nil
}
