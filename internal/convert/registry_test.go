package convert

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func staticConverter(result any) Spec {
	return Spec{
		Target: "test.Static",
		New: func(r *Registry) Func {
			return func(raw any) (any, error) { return result, nil }
		},
	}
}

func TestRegistry_LoadAndGet(t *testing.T) {
	reg := NewRegistry()

	err := reg.Load("labels", map[string]Spec{"label": staticConverter("converted")})
	require.NoError(t, err)

	fn, err := reg.Get("label")
	require.NoError(t, err)

	out, err := fn(map[string]any{"name": "bug"})
	require.NoError(t, err)
	require.Equal(t, "converted", out)
}

func TestRegistry_LoadRejectsNilConstructor(t *testing.T) {
	reg := NewRegistry()

	err := reg.Load("labels", map[string]Spec{"label": {Target: "labels.Label"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"label"`)
	require.Contains(t, err.Error(), `"labels"`)
}

func TestRegistry_LoadRejectsNilFunc(t *testing.T) {
	reg := NewRegistry()

	err := reg.Load("labels", map[string]Spec{
		"label": {Target: "labels.Label", New: func(r *Registry) Func { return nil }},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not callable")
}

func TestRegistry_CollisionDifferentTargets(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Load("issues", map[string]Spec{
		"actor": {Target: "issues.Actor", New: func(r *Registry) Func {
			return func(raw any) (any, error) { return raw, nil }
		}},
	}))

	err := reg.Load("comments", map[string]Spec{
		"actor": {Target: "comments.Author", New: func(r *Registry) Func {
			return func(raw any) (any, error) { return raw, nil }
		}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "collision")
	require.Contains(t, err.Error(), `"issues"`)
	require.Contains(t, err.Error(), `"comments"`)
}

func TestRegistry_SameTargetTolerated(t *testing.T) {
	reg := NewRegistry()

	first := Spec{Target: "shared.Actor", New: func(r *Registry) Func {
		return func(raw any) (any, error) { return "first", nil }
	}}
	second := Spec{Target: "shared.Actor", New: func(r *Registry) Func {
		return func(raw any) (any, error) { return "second", nil }
	}}

	require.NoError(t, reg.Load("issues", map[string]Spec{"actor": first}))
	require.NoError(t, reg.Load("comments", map[string]Spec{"actor": second}))

	fn, err := reg.Get("actor")
	require.NoError(t, err)
	out, err := fn(nil)
	require.NoError(t, err)
	require.Equal(t, "first", out, "first registration wins")
}

func TestRegistry_GetMissSuggestsCloseName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load("issues", map[string]Spec{"milestone": staticConverter(nil)}))

	_, err := reg.Get("milestnoe")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), `did you mean "milestone"?`)
}

func TestRegistry_GetMissWithoutSuggestion(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load("issues", map[string]Spec{"milestone": staticConverter(nil)}))

	_, err := reg.Get("quartermaster")
	require.ErrorIs(t, err, ErrNotFound)
	require.NotContains(t, err.Error(), "did you mean")
}

func TestRegistry_NestedConversion(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Load("issues", map[string]Spec{
		"actor": {Target: "issues.Actor", New: func(r *Registry) Func {
			return func(raw any) (any, error) {
				m, ok := raw.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("actor: expected map, got %T", raw)
				}
				return fmt.Sprintf("@%v", m["login"]), nil
			}
		}},
	}))

	// The comment converter resolves "actor" through the registry rather
	// than importing the issues package.
	require.NoError(t, reg.Load("comments", map[string]Spec{
		"comment": {Target: "comments.Comment", New: func(r *Registry) Func {
			return func(raw any) (any, error) {
				m := raw.(map[string]any)
				actorFn, err := r.Get("actor")
				if err != nil {
					return nil, err
				}
				author, err := actorFn(m["user"])
				if err != nil {
					return nil, err
				}
				return map[string]any{"body": m["body"], "author": author}, nil
			}
		}},
	}))

	fn, err := reg.Get("comment")
	require.NoError(t, err)

	out, err := fn(map[string]any{"body": "hi", "user": map[string]any{"login": "octo"}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"body": "hi", "author": "@octo"}, out)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load("a", map[string]Spec{"zebra": staticConverter(nil), "apple": staticConverter(nil)}))

	require.Equal(t, []string{"apple", "zebra"}, reg.Names())
	require.True(t, reg.Has("apple"))
	require.False(t, reg.Has("mango"))
}
