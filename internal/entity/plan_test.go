package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExecutionPlan_WavesRespectDependencies(t *testing.T) {
	reg := trackerRegistry(t)

	plan, err := reg.ExecutionPlan([]string{"labels", "milestones", "issues", "comments"})
	require.NoError(t, err)

	require.Equal(t, [][]string{
		{"labels", "milestones"},
		{"issues"},
		{"comments"},
	}, plan.Waves)

	wave, ok := plan.WaveOf("issues")
	require.True(t, ok)
	require.Equal(t, 1, wave)
	require.Equal(t, 4, plan.Size())
	require.Equal(t, []string{"labels", "milestones", "issues", "comments"}, plan.Entities())
}

func TestExecutionPlan_IgnoresDisabledDependencies(t *testing.T) {
	reg := trackerRegistry(t)

	// Only labels enabled: a single wave.
	plan, err := reg.ExecutionPlan([]string{"labels"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"labels"}}, plan.Waves)
}

func TestExecutionPlan_UnknownEntity(t *testing.T) {
	reg := trackerRegistry(t)

	_, err := reg.ExecutionPlan([]string{"labels", "wiki"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"wiki"`)
}

func TestExecutionPlan_DetectsResidualCycle(t *testing.T) {
	// Validate is deliberately skipped here; the planner must still refuse
	// to loop forever on a cyclic graph.
	reg := NewRegistry()
	require.NoError(t, reg.Register(desc("a", true, "b")))
	require.NoError(t, reg.Register(desc("b", true, "a")))

	_, err := reg.ExecutionPlan([]string{"a", "b"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestExecutionPlan_String(t *testing.T) {
	reg := trackerRegistry(t)
	plan, err := reg.ExecutionPlan([]string{"labels", "milestones", "issues"})
	require.NoError(t, err)
	require.Equal(t, "wave 0: labels, milestones | wave 1: issues", plan.String())
}

// TestExecutionPlan_WaveProperty checks, for arbitrary acyclic descriptor
// sets, that every entity is planned exactly once and lands strictly after
// each of its dependencies.
func TestExecutionPlan_WaveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "entities")

		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("e%02d", i)
		}

		// Edges only point from higher to lower indices, which keeps the
		// generated graph acyclic by construction.
		reg := NewRegistry()
		deps := make(map[string][]string, n)
		for i, name := range names {
			var d []string
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("dep_%d_%d", i, j)) {
					d = append(d, names[j])
				}
			}
			deps[name] = d
			require.NoError(t, reg.Register(desc(name, true, d...)))
		}
		require.NoError(t, reg.Validate())

		plan, err := reg.ExecutionPlan(names)
		require.NoError(t, err)

		seen := make(map[string]int)
		for _, name := range plan.Entities() {
			seen[name]++
		}
		for _, name := range names {
			require.Equal(t, 1, seen[name], "entity %s planned exactly once", name)
		}

		for _, name := range names {
			wave, ok := plan.WaveOf(name)
			require.True(t, ok)
			for _, dep := range deps[name] {
				depWave, ok := plan.WaveOf(dep)
				require.True(t, ok)
				require.Greater(t, wave, depWave,
					"entity %s (wave %d) must run after dependency %s (wave %d)", name, wave, dep, depWave)
			}
		}
	})
}
