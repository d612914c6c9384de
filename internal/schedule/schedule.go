// Package schedule converts weekday and time-of-day configuration into
// concrete session timestamps.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/models"
)

// AdjacentDays returns the weekdays immediately before and after d,
// wrapping around the week.
func AdjacentDays(d models.Weekday) (before, after models.Weekday, err error) {
	if !d.Valid() {
		return 0, 0, invalidWeekday(d)
	}
	before = (d + models.DaysInWeek - 1) % models.DaysInWeek
	after = (d + 1) % models.DaysInWeek
	return before, after, nil
}

// NextSessionDateTime returns the first occurrence of day at tod strictly
// after the calendar day of now, in now's location. A session on the same
// weekday as now is therefore a week away.
func NextSessionDateTime(day models.Weekday, tod models.TimeOfDay, now time.Time) (time.Time, error) {
	if !day.Valid() {
		return time.Time{}, invalidWeekday(day)
	}
	if tod.Hour < 0 || tod.Hour > 23 {
		return time.Time{}, apperr.New(apperr.CodeInvalidArgument,
			fmt.Sprintf("%d is not a valid hour, valid values are 00..23", tod.Hour))
	}
	if tod.Minute < 0 || tod.Minute > 59 {
		return time.Time{}, apperr.New(apperr.CodeInvalidArgument,
			fmt.Sprintf("%d is not a valid minute, valid values are 00..59", tod.Minute))
	}

	for i := 1; i <= models.DaysInWeek; i++ {
		candidate := now.AddDate(0, 0, i)
		if WeekdayOf(candidate) == day {
			y, m, d := candidate.Date()
			return time.Date(y, m, d, tod.Hour, tod.Minute, 0, 0, now.Location()), nil
		}
	}
	panic(fmt.Sprintf("schedule: no %s found within a week of %s", day, now))
}

// CheckAlertDays rejects alert days that fall on the day after the session.
// That day belongs to the cycle reset, and an alert there would keep the
// reset from ever running.
func CheckAlertDays(session, first, second models.Weekday) error {
	_, resetDay, err := AdjacentDays(session)
	if err != nil {
		return err
	}
	for _, d := range []models.Weekday{first, second} {
		if d == resetDay {
			return apperr.New(apperr.CodeInvalidArgument,
				fmt.Sprintf("alerts cannot be sent on %s, the day after the session is when the RSVPs are reset", d))
		}
	}
	return nil
}

// WeekdayOf maps t's weekday onto the Monday-first numbering.
func WeekdayOf(t time.Time) models.Weekday {
	return models.Weekday((int(t.Weekday()) + 6) % models.DaysInWeek)
}

// Regional indicator emojis offered as reactions when picking a day.
var dayEmojis = map[string]models.Weekday{
	"🇲": models.Monday,
	"🇹": models.Tuesday,
	"🇼": models.Wednesday,
	"🇷": models.Thursday,
	"🇫": models.Friday,
	"🇸": models.Saturday,
	"🇺": models.Sunday,
}

// ParseWeekday accepts a digit 0-6, an English day name or its three
// letter abbreviation, or one of the day emojis.
func ParseWeekday(s string) (models.Weekday, error) {
	s = strings.TrimSpace(s)
	if d, ok := dayEmojis[s]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		d := models.Weekday(n)
		if !d.Valid() {
			return 0, invalidWeekday(d)
		}
		return d, nil
	}
	lower := strings.ToLower(s)
	for d := models.Monday; d <= models.Sunday; d++ {
		name := strings.ToLower(d.String())
		if lower == name || (len(lower) >= 3 && strings.HasPrefix(name, lower)) {
			return d, nil
		}
	}
	return 0, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("%q is not a day of the week", s))
}

// ParseTimeOfDay parses a 24h HH:MM string.
func ParseTimeOfDay(s string) (models.TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return models.TimeOfDay{}, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("%q is not a HH:MM time", s))
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return models.TimeOfDay{}, apperr.Wrap(apperr.CodeInvalidArgument, fmt.Sprintf("%q is not a valid hour", hh), err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return models.TimeOfDay{}, apperr.Wrap(apperr.CodeInvalidArgument, fmt.Sprintf("%q is not a valid minute", mm), err)
	}
	tod := models.TimeOfDay{Hour: hour, Minute: minute}
	if !tod.Valid() {
		return models.TimeOfDay{}, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("%s is out of range, valid values are 00:00..23:59", s))
	}
	return tod, nil
}

func invalidWeekday(d models.Weekday) error {
	return apperr.New(apperr.CodeInvalidArgument,
		fmt.Sprintf("%d is not a valid index of a weekday, valid values are 0..6", int(d)))
}
