package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/qs3c/powerplan_server/internal/pkg/billing"
)

// 版面参数，单位 mm，A4 纵向
const (
	pageHeight    = 297.0
	bottomMargin  = 60.0
	leftX         = 20.0
	valueX        = 110.0
	headerY       = 50.0
	sectionGap    = 30.0
	rowHeight     = 10.0
	newPageStartY = 20.0

	displayDate = "02/01/2006"
	footerTime  = "02/01/2006 15:04:05"
	nameStamp   = "20060102_150405"
)

// Request 一次账单渲染请求
type Request struct {
	CustomerName string
	Period       billing.Period
	Items        []billing.Item
	// Consolidated 为 true 时生成 "all" 合并账单
	Consolidated bool
	AsOf         time.Time
}

// Document 渲染产物，Name 用于下载或归档
type Document struct {
	Name    string
	Pages   int
	Total   decimal.Decimal
	Content []byte
}

type Renderer struct {
	currency string
}

func NewRenderer(currencySymbol string) *Renderer {
	if currencySymbol == "" {
		currencySymbol = "$"
	}
	return &Renderer{currency: currencySymbol}
}

// ArtifactName power_bill_<plan|all>_<yyyyMMdd_HHmmss>.pdf
func ArtifactName(planName string, consolidated bool, asOf time.Time) string {
	label := "all"
	if !consolidated {
		label = strings.Join(strings.Fields(planName), "_")
	}
	return fmt.Sprintf("power_bill_%s_%s.pdf", label, asOf.Format(nameStamp))
}

// Render 生成账单 PDF，不做任何存储或网络操作
func (r *Renderer) Render(req Request) (*Document, error) {
	if len(req.Items) == 0 {
		return nil, billing.ErrEmptyInput
	}

	summary, err := billing.Consolidate(req.Items, req.Period)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(req.AsOf)
	pdf.SetModificationDate(req.AsOf)
	pdf.SetTitle("Power Bill", true)
	pdf.SetAuthor("Power Plan Portal", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generatedOn := req.AsOf.Format(footerTime)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-20)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, "This is a computer-generated bill.", "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 5, "Generated on "+generatedOn, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.writeHeader(pdf, tr, req, summary)

	y := headerY + sectionGap
	last := len(summary.Lines) - 1
	for i, line := range summary.Lines {
		y = r.writeSection(pdf, tr, line, y)
		if y > pageHeight-bottomMargin && i != last {
			pdf.AddPage()
			y = newPageStartY
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	planName := summary.PlanName
	if !req.Consolidated {
		planName = req.Items[0].PlanName
	}

	return &Document{
		Name:    ArtifactName(planName, req.Consolidated, req.AsOf),
		Pages:   pdf.PageCount(),
		Total:   summary.Total,
		Content: buf.Bytes(),
	}, nil
}

func (r *Renderer) writeHeader(pdf *fpdf.Fpdf, tr func(string) string, req Request, summary *billing.Consolidated) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(leftX, 20, "Power Bill")

	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(leftX, 30, tr("Customer: "+req.CustomerName))
	pdf.Text(leftX, 37, fmt.Sprintf("Billing Period: %s - %s",
		req.Period.Start.Format(displayDate), req.Period.End.Format(displayDate)))

	planName, location := summary.PlanName, summary.Location
	if !req.Consolidated && len(summary.Lines) == 1 {
		planName, location = summary.Lines[0].PlanName, summary.Lines[0].Location
	}
	pdf.Text(leftX, 44, tr(fmt.Sprintf("Plan: %s (%s)", planName, location)))

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(leftX, headerY, "Total Due: "+r.money(summary.Total))
}

// writeSection 输出一个订阅的明细表，返回下一段的起始 y
func (r *Renderer) writeSection(pdf *fpdf.Fpdf, tr func(string) string, line billing.Line, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(leftX, y, tr(line.PlanName))
	y += rowHeight

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(leftX, y, tr("Location: "+line.Location))
	y += rowHeight

	for _, row := range r.sectionRows(line) {
		pdf.Text(leftX, y, row[0])
		pdf.Text(valueX, y, row[1])
		y += rowHeight
	}

	return y - rowHeight + sectionGap
}

// sectionRows 明细表的标签与取值，Amount 为 单价 x 天数 的计算结果
func (r *Renderer) sectionRows(line billing.Line) [][2]string {
	price := decimal.NewFromFloat(line.Price)
	return [][2]string{
		{"Daily Rate", r.money(price)},
		{"Days", fmt.Sprintf("%d", line.Days)},
		{"Amount", r.money(price.Mul(decimal.NewFromInt(int64(line.Days))))},
		{"Total", r.money(line.Amount)},
	}
}

func (r *Renderer) money(d decimal.Decimal) string {
	return r.currency + billing.FormatMoney(d)
}
