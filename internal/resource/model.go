package resource

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindMachine Kind = "machine"
	KindTrainer Kind = "trainer"
)

var ErrInvalidWindow = errors.New("invalid daily window")

// DailyWindow is a half-open range of hours [OpenHour, CloseHour) applied to
// the calendar day (UTC) on which a reservation starts.
type DailyWindow struct {
	OpenHour  int `json:"open_hour"`
	CloseHour int `json:"close_hour"`
}

func (w DailyWindow) Validate() error {
	if w.OpenHour < 0 || w.CloseHour > 24 || w.OpenHour >= w.CloseHour {
		return fmt.Errorf("%w: %02d:00-%02d:00", ErrInvalidWindow, w.OpenHour, w.CloseHour)
	}
	return nil
}

// Contains reports whether [start, end) lies inside the window on the day of start.
func (w DailyWindow) Contains(start, end time.Time) bool {
	start = start.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	lo := day.Add(time.Duration(w.OpenHour) * time.Hour)
	hi := day.Add(time.Duration(w.CloseHour) * time.Hour)
	return !start.Before(lo) && !end.After(hi)
}

func (w DailyWindow) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.OpenHour, w.CloseHour)
}

type Resource struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Kind     Kind        `json:"kind"`
	Category string      `json:"category,omitempty"`
	Window   DailyWindow `json:"daily_window"`
}

// row is the flat database shape of a Resource.
type row struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Kind      string `db:"kind"`
	Category  string `db:"category"`
	OpenHour  int    `db:"open_hour"`
	CloseHour int    `db:"close_hour"`
}

func (r row) toResource() Resource {
	return Resource{
		ID:       r.ID,
		Name:     r.Name,
		Kind:     Kind(r.Kind),
		Category: r.Category,
		Window:   DailyWindow{OpenHour: r.OpenHour, CloseHour: r.CloseHour},
	}
}
