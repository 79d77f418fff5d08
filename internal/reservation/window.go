package reservation

import (
	"github.com/Ridham19/GYM-flow/internal/resource"
)

// Validate checks a candidate against the facility policy and the daily
// windows of the requested resources. Checks run in a fixed order and the
// first failure wins:
//
//  1. start < end
//  2. duration within [min, max]
//  3. inside facility hours
//  4. inside each resource's window, in the order of c.ResourceIDs
//
// resources must contain every id in c.ResourceIDs. Validate is pure and
// never looks at existing reservations.
func Validate(c Candidate, resources []resource.Resource, p Policy) error {
	if !c.Start.Before(c.End) {
		return &Error{Kind: KindInvalidTimeRange}
	}

	d := c.End.Sub(c.Start)
	if d < p.MinDuration() || d > p.MaxDuration() {
		return &Error{Kind: KindDurationOutOfBounds}
	}

	if !p.Window().Contains(c.Start, c.End) {
		w := p.Window()
		return &Error{Kind: KindOutsideFacilityHours, Window: &w}
	}

	byID := make(map[string]resource.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}

	for _, id := range c.ResourceIDs {
		r, ok := byID[id]
		if !ok {
			return &Error{Kind: KindNotFound, ResourceID: id}
		}
		if !r.Window.Contains(c.Start, c.End) {
			w := r.Window
			return &Error{Kind: KindOutsideResourceHours, ResourceID: id, Window: &w}
		}
	}

	return nil
}
