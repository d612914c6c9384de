package models

import "fmt"

// Weekday is a day of the week with Monday = 0 and Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysInWeek is the size of the weekday space.
const DaysInWeek = 7

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether d is in [0,6].
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// TimeOfDay is a wall clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Valid reports whether the hour is in [0,23] and the minute in [0,59].
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String formats the time as HH:MM, the persisted representation.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Player is a Discord user registered for a guild's campaign
type Player struct {
	ID   string
	Name string
}

// GuildConfig holds the per-guild session configuration
type GuildConfig struct {
	GuildID        string
	VoiceChannelID string
	Organizer      *Player
	SessionDay     Weekday
	SessionTime    TimeOfDay
	MeetingRoomID  string
	FirstAlert     Weekday
	SecondAlert    Weekday
	AlertsEnabled  bool
	CancelSession  bool
}

// NewGuildConfig returns a config with the documented defaults applied.
func NewGuildConfig(guildID string) GuildConfig {
	return GuildConfig{GuildID: guildID, AlertsEnabled: true}
}

// RosterSet names one of the per-guild player sets
type RosterSet string

const (
	Players    RosterSet = "players"
	Attendees  RosterSet = "attendees"
	Decliners  RosterSet = "decliners"
	Cancellers RosterSet = "cancellers"
)

// RSVPSets are the sets cleared at the end of every cycle.
var RSVPSets = []RosterSet{Attendees, Decliners, Cancellers}

// Valid reports whether s is a known roster set.
func (s RosterSet) Valid() bool {
	switch s {
	case Players, Attendees, Decliners, Cancellers:
		return true
	}
	return false
}

// ConfigField is a weekday-valued config field that can be queried.
type ConfigField string

const (
	FieldFirstAlert  ConfigField = "first-alert"
	FieldSecondAlert ConfigField = "second-alert"
	FieldSessionDay  ConfigField = "session-day"
)

// Valid reports whether f is a queryable field.
func (f ConfigField) Valid() bool {
	switch f {
	case FieldFirstAlert, FieldSecondAlert, FieldSessionDay:
		return true
	}
	return false
}

// Weekday returns the value of field f in c.
func (c GuildConfig) Weekday(f ConfigField) Weekday {
	switch f {
	case FieldFirstAlert:
		return c.FirstAlert
	case FieldSecondAlert:
		return c.SecondAlert
	default:
		return c.SessionDay
	}
}

// Unanswered is the set of players that have neither accepted nor declined.
// Everyone is set instead of listing players when nobody has answered yet.
type Unanswered struct {
	Everyone bool
	Players  []Player
}

// Digest is the RSVP summary sent to the organizer on session day
type Digest struct {
	Attendees  []Player
	Decliners  []Player
	Cancellers []Player
}
