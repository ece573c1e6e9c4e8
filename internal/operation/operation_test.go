package operation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/trove/internal/entity"
)

func boolPtr(b bool) *bool { return &b }

// === Write inference ===

func TestNew_InfersWriteFromPrefix(t *testing.T) {
	tests := []struct {
		name  string
		write bool
	}{
		{"list_issues", false},
		{"get_issue", false},
		{"create_issue", true},
		{"update_issue", true},
		{"delete_label", true},
		{"close_issue", true},
		{"recreate_index", false}, // prefix match, not substring match
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := New(tt.name, "issues", entity.OperationSpec{TransportMethod: "x"})
			require.Equal(t, tt.write, op.IsWrite())
		})
	}
}

func TestNew_WriteOverrideBeatsInference(t *testing.T) {
	// An operation named like a read that actually mutates state.
	op := New("sync_board", "issues", entity.OperationSpec{TransportMethod: "x", Write: boolPtr(true)})
	require.True(t, op.IsWrite())

	// And the reverse: a "close_" prefixed read.
	op = New("close_estimates", "issues", entity.OperationSpec{TransportMethod: "x", Write: boolPtr(false)})
	require.False(t, op.IsWrite())
}

// === Caching and retry flags ===

func TestShouldCache(t *testing.T) {
	read := New("list_issues", "issues", entity.OperationSpec{TransportMethod: "x"})
	require.True(t, read.ShouldCache())

	uncached := New("list_issues", "issues", entity.OperationSpec{TransportMethod: "x", NoCache: true})
	require.False(t, uncached.ShouldCache())

	write := New("create_issue", "issues", entity.OperationSpec{TransportMethod: "x"})
	require.False(t, write.ShouldCache())
}

func TestShouldRetry(t *testing.T) {
	op := New("list_issues", "issues", entity.OperationSpec{TransportMethod: "x"})
	require.True(t, op.ShouldRetry())

	write := New("create_issue", "issues", entity.OperationSpec{TransportMethod: "x"})
	require.True(t, write.ShouldRetry(), "writes retry by default")

	noRetry := New("create_issue", "issues", entity.OperationSpec{TransportMethod: "x", NoRetry: true})
	require.False(t, noRetry.ShouldRetry())
}

// === Cache keys ===

func TestCacheKey_OrderIndependent(t *testing.T) {
	op := New("get_x", "issues", entity.OperationSpec{TransportMethod: "x"})

	a := op.CacheKey(map[string]any{"repo": "o/r", "id": 5})
	b := op.CacheKey(map[string]any{"id": 5, "repo": "o/r"})
	require.Equal(t, a, b)
	require.Equal(t, "get_x|id=5|repo=o/r", a)
}

func TestCacheKey_NoParams(t *testing.T) {
	op := New("list_labels", "labels", entity.OperationSpec{TransportMethod: "x"})
	require.Equal(t, "list_labels", op.CacheKey(nil))
}

func TestCacheKey_Template(t *testing.T) {
	op := New("list_issues", "issues", entity.OperationSpec{
		TransportMethod:  "x",
		CacheKeyTemplate: "issues:{repo}:{state}",
	})
	key := op.CacheKey(map[string]any{"repo": "o/r", "state": "open", "page": 3})
	require.Equal(t, "issues:o/r:open", key)
}

func TestString_IncludesSpecDetails(t *testing.T) {
	op := New("create_issue", "issues", entity.OperationSpec{
		TransportMethod: "create_issue",
		Converter:       "issue",
	})
	s := op.String()
	require.Contains(t, s, "create_issue")
	require.Contains(t, s, "entity=issues")
	require.Contains(t, s, "converter=issue")
	require.Contains(t, s, "write=true")
}
