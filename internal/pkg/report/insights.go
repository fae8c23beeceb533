package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/qs3c/powerplan_server/internal/pkg/billing"
)

const (
	plansSheet   = "Plans"
	summarySheet = "Summary"
)

// InsightsFileName 导出文件名
func InsightsFileName(ins *billing.Insights) string {
	return fmt.Sprintf("usage_insights_%s.xlsx", ins.AsOf.Format("20060102"))
}

// InsightsWorkbook 把用量概览写成 xlsx
func InsightsWorkbook(ins *billing.Insights) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), plansSheet); err != nil {
		return nil, err
	}

	header := []interface{}{"plan_name", "location", "daily_usage", "month_to_date", "billing_start", "billing_end"}
	if err := f.SetSheetRow(plansSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, p := range ins.Plans {
		excelRow := []interface{}{
			p.PlanName,
			p.Location,
			p.DailyUsage.InexactFloat64(),
			p.MonthToDate.InexactFloat64(),
			p.BillingStart.Format(billing.DateLayout),
			p.BillingEnd.Format(billing.DateLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(plansSheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, err
	}
	if row > 2 {
		if err := f.SetCellStyle(plansSheet, "C2", fmt.Sprintf("D%d", row-1), moneyStyle); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(plansSheet, "A", "B", 24)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"as_of", ins.AsOf.Format(billing.DateLayout)},
		{"plan_count", ins.PlanCount},
		{"total", ins.Total.Round(billing.MoneyPlaces).InexactFloat64()},
		{"average_daily_usage", ins.AverageDailyUsage.Round(billing.MoneyPlaces).InexactFloat64()},
		{"projected_annual", ins.ProjectedAnnual.Round(billing.MoneyPlaces).InexactFloat64()},
	}
	for i, r := range summary {
		r := r
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
