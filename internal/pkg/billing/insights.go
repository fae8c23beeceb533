package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlanInsight struct {
	PlanName     string
	Location     string
	DailyUsage   decimal.Decimal
	MonthToDate  decimal.Decimal
	BillingStart time.Time
	BillingEnd   time.Time
}

// Insights 用量概览，月初到 asOf
type Insights struct {
	AsOf              time.Time
	Plans             []PlanInsight
	Total             decimal.Decimal
	PlanCount         int
	AverageDailyUsage decimal.Decimal
	ProjectedAnnual   decimal.Decimal
}

// BuildInsights 汇总每个订阅的本月费用，空列表返回全零概览
func BuildInsights(items []Item, asOf time.Time) (*Insights, error) {
	period := Period{Start: StartOfMonth(asOf), End: DateOnly(asOf)}
	out := &Insights{
		AsOf:              DateOnly(asOf),
		Plans:             make([]PlanInsight, 0, len(items)),
		Total:             decimal.Zero,
		AverageDailyUsage: decimal.Zero,
		ProjectedAnnual:   decimal.Zero,
	}

	dailySum := decimal.Zero
	for _, it := range items {
		amount, err := CalculateBill(it.Price, period.Start, period.End)
		if err != nil {
			return nil, err
		}
		daily := decimal.NewFromFloat(it.Price)
		out.Plans = append(out.Plans, PlanInsight{
			PlanName:     it.PlanName,
			Location:     it.Location,
			DailyUsage:   daily,
			MonthToDate:  amount,
			BillingStart: period.Start,
			BillingEnd:   period.End,
		})
		out.Total = out.Total.Add(amount)
		dailySum = dailySum.Add(daily)
	}

	out.PlanCount = len(items)
	n := int64(len(items))
	if n < 1 {
		n = 1
	}
	out.AverageDailyUsage = dailySum.Div(decimal.NewFromInt(n))
	out.ProjectedAnnual = out.Total.Mul(decimal.NewFromInt(12))

	return out, nil
}
