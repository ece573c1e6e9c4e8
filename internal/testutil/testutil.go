// Package testutil provides shared builders for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/trove/internal/archive"
	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/dispatch"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/operation"
	"github.com/zjrosen/trove/internal/remap"
	"github.com/zjrosen/trove/internal/strategy"
	"github.com/zjrosen/trove/internal/transport"
)

// NewConverters loads the converters declared by the given descriptors.
func NewConverters(t *testing.T, descriptors ...*entity.Descriptor) *convert.Registry {
	t.Helper()
	reg := convert.NewRegistry()
	for _, d := range descriptors {
		require.NoError(t, reg.Load(d.Name, d.Converters))
	}
	return reg
}

// NewDispatcher builds a dispatcher over a recorder transport for the
// given descriptors. Caching is left off so tests observe every call.
func NewDispatcher(t *testing.T, rec *transport.Recorder, descriptors ...*entity.Descriptor) *dispatch.Dispatcher {
	t.Helper()

	converters := NewConverters(t, descriptors...)
	ops, err := operation.NewRegistry(descriptors, converters)
	require.NoError(t, err)

	d, err := dispatch.New(dispatch.Config{
		Transport:  rec,
		Operations: ops,
		Converters: converters,
	})
	require.NoError(t, err)
	return d
}

// NewServices builds a fully-populated strategy service set around the
// recorder for the given repo.
func NewServices(t *testing.T, repo string, rec *transport.Recorder, descriptors ...*entity.Descriptor) strategy.Services {
	t.Helper()
	return strategy.Services{
		Repo:       repo,
		Transport:  rec,
		Dispatcher: NewDispatcher(t, rec, descriptors...),
		Archive:    archive.NewMemoryStore(),
		Remap:      remap.NewTable(),
		Conflicts:  strategy.ConflictSkip,
	}
}
