package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/trove/internal/log"
)

// Plan is an ordered partition of the enabled entities into waves. Wave 0
// holds entities with no enabled dependencies; every later entity lands in
// a wave strictly after all of its dependencies.
type Plan struct {
	Waves [][]string

	waveOf map[string]int
}

// WaveOf returns the wave index of an entity.
func (p *Plan) WaveOf(name string) (int, bool) {
	idx, ok := p.waveOf[name]
	return idx, ok
}

// Entities returns every planned entity in wave order.
func (p *Plan) Entities() []string {
	var out []string
	for _, wave := range p.Waves {
		out = append(out, wave...)
	}
	return out
}

// Size returns the number of planned entities.
func (p *Plan) Size() int {
	return len(p.waveOf)
}

// String renders the plan as "wave 0: a, b | wave 1: c".
func (p *Plan) String() string {
	parts := make([]string, len(p.Waves))
	for i, wave := range p.Waves {
		parts[i] = fmt.Sprintf("wave %d: %s", i, strings.Join(wave, ", "))
	}
	return strings.Join(parts, " | ")
}

// ExecutionPlan topologically sorts the enabled entities into waves.
// Dependencies outside the enabled set are ignored; Resolve has already
// guaranteed no enabled entity depends on a disabled one. A cycle at this
// point means Validate was skipped, and is still reported rather than
// looping forever.
func (r *Registry) ExecutionPlan(enabled []string) (*Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	remaining := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if _, ok := r.descriptors[name]; !ok {
			return nil, fmt.Errorf("execution plan includes unknown entity %q", name)
		}
		remaining[name] = true
	}

	plan := &Plan{waveOf: make(map[string]int, len(remaining))}
	for len(remaining) > 0 {
		var wave []string
		for name := range remaining {
			ready := true
			for _, dep := range r.descriptors[name].Dependencies {
				if remaining[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, name)
			}
		}

		if len(wave) == 0 {
			stuck := make([]string, 0, len(remaining))
			for name := range remaining {
				stuck = append(stuck, name)
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("dependency cycle among enabled entities: %s", strings.Join(stuck, ", "))
		}

		sort.Strings(wave)
		for _, name := range wave {
			plan.waveOf[name] = len(plan.Waves)
			delete(remaining, name)
		}
		plan.Waves = append(plan.Waves, wave)
	}

	log.Debug(log.CatRegistry, "execution plan built", "plan", plan.String())
	return plan, nil
}
