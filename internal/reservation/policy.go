package reservation

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Ridham19/GYM-flow/internal/resource"
)

var ErrInvalidPolicy = errors.New("invalid facility policy")

// Policy is the facility-wide admission policy.
type Policy struct {
	OpenHour           int `json:"open_hour"`
	CloseHour          int `json:"close_hour"`
	MinDurationMinutes int `json:"min_duration_minutes"`
	MaxDurationMinutes int `json:"max_duration_minutes"`
}

func (p Policy) Validate() error {
	if err := p.Window().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if p.MinDurationMinutes <= 0 || p.MaxDurationMinutes < p.MinDurationMinutes {
		return fmt.Errorf("%w: duration bounds [%d, %d] minutes", ErrInvalidPolicy, p.MinDurationMinutes, p.MaxDurationMinutes)
	}
	return nil
}

func (p Policy) Window() resource.DailyWindow {
	return resource.DailyWindow{OpenHour: p.OpenHour, CloseHour: p.CloseHour}
}

func (p Policy) MinDuration() time.Duration {
	return time.Duration(p.MinDurationMinutes) * time.Minute
}

func (p Policy) MaxDuration() time.Duration {
	return time.Duration(p.MaxDurationMinutes) * time.Minute
}

type PolicyProvider interface {
	GetPolicy() Policy
}

// PolicyHolder serves the current policy and swaps it as a whole on reload.
type PolicyHolder struct {
	current atomic.Pointer[Policy]
}

func NewPolicyHolder(p Policy) (*PolicyHolder, error) {
	h := &PolicyHolder{}
	if err := h.Replace(p); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *PolicyHolder) GetPolicy() Policy {
	return *h.current.Load()
}

// Replace installs p if it is valid; otherwise the previous policy stays.
func (h *PolicyHolder) Replace(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.current.Store(&p)
	return nil
}
