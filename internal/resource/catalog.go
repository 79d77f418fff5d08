package resource

import (
	"context"
	"sort"
	"sync"
)

// Catalog is an in-memory Repository used by the memory store backend and tests.
type Catalog struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

func NewCatalog(resources ...Resource) *Catalog {
	c := &Catalog{resources: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		c.resources[r.ID] = r
	}
	return c
}

// DefaultCatalog mirrors the seed data the gym has always shipped with.
func DefaultCatalog() *Catalog {
	always := DailyWindow{OpenHour: 0, CloseHour: 24}
	return NewCatalog(
		Resource{ID: "treadmill-01", Name: "Treadmill 01", Kind: KindMachine, Category: "Cardio", Window: always},
		Resource{ID: "leg-press-max", Name: "Leg Press Max", Kind: KindMachine, Category: "Strength", Window: always},
		Resource{ID: "bench-press-1", Name: "Bench Press 1", Kind: KindMachine, Category: "Weights", Window: always},
		Resource{ID: "elliptical-05", Name: "Elliptical 05", Kind: KindMachine, Category: "Cardio", Window: always},
		Resource{ID: "trainer-alex", Name: "Alex", Kind: KindTrainer, Category: "Strength", Window: DailyWindow{OpenHour: 9, CloseHour: 17}},
	)
}

func (c *Catalog) Put(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[r.ID] = r
}

func (c *Catalog) GetResources(_ context.Context, ids []string) ([]Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return inOrder(ids, c.resources)
}

func (c *Catalog) List(_ context.Context) ([]Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Resource, 0, len(c.resources))
	for _, r := range c.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
