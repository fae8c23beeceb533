package clock

import "time"

// Clock 提供当前时间，计费与任务调度统一从这里取时间
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System 返回系统时钟，loc 为空时使用 UTC
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed 固定时钟，测试用
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// LoadLocation 解析时区名称，空字符串视为 UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
