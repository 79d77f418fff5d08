package reservation

import (
	"sort"
	"time"
)

// FindConflict returns the first confirmed reservation in existing that shares
// a resource with the candidate and overlaps it under the half-open rule.
// Resources are examined in the order of resourceIDs; within one resource the
// earliest-starting conflict wins. It returns nil when the candidate is free.
func FindConflict(c Candidate, resourceIDs []string, existing []*Reservation) *Reservation {
	for _, id := range resourceIDs {
		var first *Reservation
		for _, r := range existing {
			if !r.IsConfirmed() || !r.Uses(id) || !r.Overlaps(c.Start, c.End) {
				continue
			}
			if first == nil || r.Start.Before(first.Start) ||
				(r.Start.Equal(first.Start) && r.ID < first.ID) {
				first = r
			}
		}
		if first != nil {
			return first
		}
	}
	return nil
}

const day = 24 * time.Hour

// Index buckets reservations by resource id and UTC calendar day so that a
// lookup touches only the days a query interval spans. A reservation that
// crosses midnight is filed under every day it covers.
//
// Index is not safe for concurrent use; owners guard it.
type Index struct {
	buckets map[string]map[int64][]*Reservation
}

func NewIndex() *Index {
	return &Index{buckets: make(map[string]map[int64][]*Reservation)}
}

func dayKey(t time.Time) int64 {
	return t.UTC().Truncate(day).Unix()
}

// days returns the keys of every day touched by [start, end).
func days(start, end time.Time) []int64 {
	first := start.UTC().Truncate(day)
	last := end.UTC().Add(-time.Nanosecond).Truncate(day)
	var keys []int64
	for d := first; !d.After(last); d = d.Add(day) {
		keys = append(keys, d.Unix())
	}
	return keys
}

func (ix *Index) Add(r *Reservation) {
	for _, id := range r.ResourceIDs {
		byDay, ok := ix.buckets[id]
		if !ok {
			byDay = make(map[int64][]*Reservation)
			ix.buckets[id] = byDay
		}
		for _, k := range days(r.Start, r.End) {
			byDay[k] = append(byDay[k], r)
		}
	}
}

func (ix *Index) Remove(r *Reservation) {
	for _, id := range r.ResourceIDs {
		byDay := ix.buckets[id]
		for _, k := range days(r.Start, r.End) {
			bucket := byDay[k]
			for i, x := range bucket {
				if x.ID == r.ID {
					bucket = append(bucket[:i:i], bucket[i+1:]...)
					break
				}
			}
			if len(bucket) == 0 {
				delete(byDay, k)
			} else {
				byDay[k] = bucket
			}
		}
		if len(byDay) == 0 {
			delete(ix.buckets, id)
		}
	}
}

// Overlapping returns the distinct reservations on any of resourceIDs that
// overlap [from, to), ordered by start then id.
func (ix *Index) Overlapping(resourceIDs []string, from, to time.Time) []*Reservation {
	if !from.Before(to) {
		return nil
	}

	seen := make(map[string]struct{})
	var out []*Reservation
	collect := func(bucket []*Reservation) {
		for _, r := range bucket {
			if _, dup := seen[r.ID]; dup || !r.Overlaps(from, to) {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}

	span := int(to.Sub(from)/day) + 2
	for _, id := range resourceIDs {
		byDay := ix.buckets[id]
		if byDay == nil {
			continue
		}
		// wide queries walk the buckets instead of the calendar
		if span > len(byDay) {
			for _, bucket := range byDay {
				collect(bucket)
			}
			continue
		}
		for _, k := range days(from, to) {
			collect(byDay[k])
		}
	}

	sortByStart(out)
	return out
}

func sortByStart(rs []*Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Start.Equal(rs[j].Start) {
			return rs[i].Start.Before(rs[j].Start)
		}
		return rs[i].ID < rs[j].ID
	})
}
