package transit

import "time"

// Tokyo is Japan Standard Time. Japan observes no daylight saving.
var Tokyo = time.FixedZone("JST", 9*60*60)

// NextMondayMorning returns the first Monday 08:00 JST strictly after the
// current day, so a Monday returns the following week's Monday.
func NextMondayMorning(now time.Time) time.Time {
	t := now.In(Tokyo)
	days := (8 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()+days, 8, 0, 0, 0, Tokyo)
}

// TomorrowMorning returns 08:00 JST on the day after now.
func TomorrowMorning(now time.Time) time.Time {
	t := now.In(Tokyo)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 8, 0, 0, 0, Tokyo)
}
