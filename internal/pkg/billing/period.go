package billing

import (
	"errors"
	"fmt"
	"time"
)

const (
	PeriodCurrent  = "current"
	PeriodPrevious = "previous"
	PeriodCustom   = "custom"

	DateLayout = "2006-01-02"
)

var ErrInvalidPeriod = errors.New("invalid billing period")

// Period 账单周期，首尾都包含
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Days() (int, error) {
	return DaysInclusive(p.Start, p.End)
}

// StartOfMonth 当月第一天
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// ResolvePeriod 根据周期类型和 asOf 计算账单周期
// current: 本月 1 日到 asOf；previous: 上个自然月；custom: start/end 必填
func ResolvePeriod(kind string, asOf time.Time, start, end string) (Period, error) {
	switch kind {
	case "", PeriodCurrent:
		return Period{Start: StartOfMonth(asOf), End: DateOnly(asOf)}, nil
	case PeriodPrevious:
		first := StartOfMonth(asOf)
		return Period{Start: first.AddDate(0, -1, 0), End: first.AddDate(0, 0, -1)}, nil
	case PeriodCustom:
		if start == "" || end == "" {
			return Period{}, fmt.Errorf("%w: custom period requires start and end", ErrInvalidPeriod)
		}
		s, err := time.Parse(DateLayout, start)
		if err != nil {
			return Period{}, fmt.Errorf("%w: start: %v", ErrInvalidPeriod, err)
		}
		e, err := time.Parse(DateLayout, end)
		if err != nil {
			return Period{}, fmt.Errorf("%w: end: %v", ErrInvalidPeriod, err)
		}
		if e.Before(s) {
			return Period{}, ErrInvalidRange
		}
		return Period{Start: s, End: e}, nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, kind)
	}
}
