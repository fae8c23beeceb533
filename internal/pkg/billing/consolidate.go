package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ConsolidatedPlanName 合并账单使用的虚拟订阅名称
const ConsolidatedPlanName = "Consolidated Plans"

// Item 参与账单的订阅快照
type Item struct {
	PlanName string
	Location string
	Price    float64
}

// Line 单个订阅在账单中的明细
type Line struct {
	Item
	Days   int
	Amount decimal.Decimal
}

// Consolidated 合并账单：价格求和、地点拼接，总额为各订阅取整后金额之和
type Consolidated struct {
	PlanName string
	Location string
	Price    decimal.Decimal
	Lines    []Line
	Total    decimal.Decimal
}

// Consolidate 按天折算每个订阅并汇总
func Consolidate(items []Item, period Period) (*Consolidated, error) {
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}

	days, err := DaysInclusive(period.Start, period.End)
	if err != nil {
		return nil, err
	}

	out := &Consolidated{
		PlanName: ConsolidatedPlanName,
		Price:    decimal.Zero,
		Total:    decimal.Zero,
		Lines:    make([]Line, 0, len(items)),
	}
	locations := make([]string, 0, len(items))

	for _, it := range items {
		amount, err := CalculateBill(it.Price, period.Start, period.End)
		if err != nil {
			return nil, err
		}
		out.Lines = append(out.Lines, Line{Item: it, Days: days, Amount: amount})
		out.Price = out.Price.Add(decimal.NewFromFloat(it.Price))
		out.Total = out.Total.Add(amount)
		locations = append(locations, it.Location)
	}
	out.Location = strings.Join(locations, ", ")

	return out, nil
}
