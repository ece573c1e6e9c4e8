package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRoutes() map[string]Route {
	return map[string]Route{
		"fetch_labels": {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/labels"},
		"create_label": {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/labels"},
	}
}

func TestRESTClient_GetBuildsQueryAndDecodes(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"name": "bug"}})
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "secret", testRoutes())
	result, err := client.Invoke(context.Background(), "fetch_labels", Params{"repo": "acme", "page": 2})
	require.NoError(t, err)

	require.Equal(t, "/repos/acme/labels", gotPath)
	require.Equal(t, "page=2", gotQuery)
	require.Equal(t, "Bearer secret", gotAuth)

	list, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
}

func TestRESTClient_PostSendsBody(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "bug"})
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "", testRoutes())
	_, err := client.Invoke(context.Background(), "create_label", Params{"repo": "acme", "name": "bug", "color": "d73a4a"})
	require.NoError(t, err)

	require.Equal(t, "bug", gotBody["name"])
	require.Equal(t, "d73a4a", gotBody["color"])
	require.NotContains(t, gotBody, "repo")
}

func TestRESTClient_ClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewRESTClient(srv.URL, "", testRoutes())
			_, err := client.Invoke(context.Background(), "fetch_labels", Params{"repo": "acme"})
			require.Error(t, err)
			require.Equal(t, tt.wantTransient, IsTransient(err))
		})
	}
}

func TestRESTClient_UnknownMethod(t *testing.T) {
	client := NewRESTClient("http://127.0.0.1:0", "", testRoutes())
	_, err := client.Invoke(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRESTClient_MissingPathParam(t *testing.T) {
	client := NewRESTClient("http://127.0.0.1:0", "", testRoutes())
	_, err := client.Invoke(context.Background(), "fetch_labels", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing path parameter")
}

func TestRecorder_RecordsAndServes(t *testing.T) {
	rec := NewRecorder().HandleValue("fetch_labels", []any{map[string]any{"name": "bug"}})

	result, err := rec.Invoke(context.Background(), "fetch_labels", Params{"repo": "acme"})
	require.NoError(t, err)
	require.Len(t, result.([]any), 1)
	require.Equal(t, 1, rec.CallCount("fetch_labels"))

	_, err = rec.Invoke(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrUnknownMethod)
	require.Len(t, rec.Calls(), 2)
}
