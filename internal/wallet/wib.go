package wallet

import "time"

// Календарные границы считаются по фиксированному поясу WIB (UTC+7),
// как принято в магазине; created_at при этом хранится в UTC.
var wib = time.FixedZone("WIB", 7*60*60)

// NowWIB возвращает текущее время в поясе WIB
func NowWIB() time.Time {
	return time.Now().In(wib)
}

// DayWIB возвращает календарный день WIB в формате YYYY-MM-DD
func DayWIB() string {
	return NowWIB().Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, wib)
}

func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	// Неделя начинается с понедельника
	offset := int(d.Weekday()) - 1
	if offset < 0 {
		offset = 6
	}
	return d.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, wib)
}

func isoUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// RangeToday возвращает границы текущего дня WIB в формате created_at
func RangeToday() (string, string) {
	start := startOfDay(NowWIB())
	return isoUTC(start), isoUTC(start.AddDate(0, 0, 1))
}

// RangeThisWeek возвращает границы текущей недели WIB (с понедельника)
func RangeThisWeek() (string, string) {
	start := startOfWeek(NowWIB())
	return isoUTC(start), isoUTC(start.AddDate(0, 0, 7))
}

// RangeThisMonth возвращает границы текущего месяца WIB
func RangeThisMonth() (string, string) {
	start := startOfMonth(NowWIB())
	return isoUTC(start), isoUTC(start.AddDate(0, 1, 0))
}
