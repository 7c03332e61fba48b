package block

import (
	"fmt"
	"strings"
	"time"

	"teesheet/internal/pkg/clock"
)

// Recurrence decides which civil dates a recurring block applies to.
// A nil Recurrence means the block is a single span.
type Recurrence interface {
	Matches(d clock.Date) bool
	String() string
}

type Daily struct{}

func (Daily) Matches(clock.Date) bool { return true }
func (Daily) String() string          { return "DAILY" }

type Weekly struct {
	Days WeekdaySet
}

func (w Weekly) Matches(d clock.Date) bool { return w.Days.Has(d.Weekday()) }
func (w Weekly) String() string            { return "WEEKLY:" + w.Days.String() }

// WeekdaySet is a bitmask indexed by time.Weekday.
type WeekdaySet uint8

var weekdayNames = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) Empty() bool             { return s == 0 }

// String lists days Monday first, e.g. "MON,WED,SUN".
func (s WeekdaySet) String() string {
	var names []string
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			names = append(names, weekdayNames[d])
		}
	}
	return strings.Join(names, ",")
}

func parseWeekday(name string) (time.Weekday, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ParseRecurrence reads the stored form: "", "DAILY" or "WEEKLY:MON,TUE".
func ParseRecurrence(s string) (Recurrence, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case s == "":
		return nil, nil
	case s == "DAILY":
		return Daily{}, nil
	case strings.HasPrefix(s, "WEEKLY:"):
		var set WeekdaySet
		for _, part := range strings.Split(strings.TrimPrefix(s, "WEEKLY:"), ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			d, err := parseWeekday(part)
			if err != nil {
				return nil, err
			}
			set |= NewWeekdaySet(d)
		}
		if set.Empty() {
			return nil, fmt.Errorf("weekly recurrence needs at least one weekday")
		}
		return Weekly{Days: set}, nil
	default:
		return nil, fmt.Errorf("unknown recurrence %q", s)
	}
}
