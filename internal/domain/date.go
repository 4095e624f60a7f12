package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date 是不带时区的日历日期，可以直接作为 map 的键比较
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, invalid("date", fmt.Sprintf("日期 %q 格式错误，应为 YYYY-MM-DD", s))
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) String() string     { return d.Time().Format(dateLayout) }

func (d Date) Period() Period {
	return Period(fmt.Sprintf("%04d%02d", d.Year, int(d.Month)))
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	*d = v
	return err
}

func (d Date) Value() (driver.Value, error) { return d.Time(), nil }
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	default:
		return fmt.Errorf("无法将 %T 解析为日期", src)
	}
}

// Period 是 6 位的 YYYYMM 字符串
type Period string

func ParsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return "", invalid("period", "周期必须是 6 位的 YYYYMM")
	}
	if _, err := time.Parse("200601", s); err != nil {
		return "", invalid("period", fmt.Sprintf("周期 %q 不是合法的年月", s))
	}
	return Period(s), nil
}

func (p Period) Contains(d Date) bool {
	return d.Period() == p
}

func (p Period) FirstDay() Date {
	t, _ := time.Parse("200601", string(p))
	return DateOf(t)
}

func (p Period) Days() int {
	first := p.FirstDay().Time()
	return first.AddDate(0, 1, -1).Day()
}
