package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zjrosen/trove/internal/log"
)

// Route maps a transport method name onto an HTTP endpoint. Path segments of
// the form {name} are filled from the invocation params; remaining params
// become the query string for reads or the JSON body for writes.
type Route struct {
	HTTPMethod string
	Path       string
}

// RESTClient is a Client speaking JSON over HTTP against a route table.
type RESTClient struct {
	baseURL string
	token   string
	routes  map[string]Route
	httpc   *http.Client
}

// NewRESTClient creates a RESTClient for the given API endpoint.
func NewRESTClient(baseURL, token string, routes map[string]Route) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		routes:  routes,
		httpc:   &http.Client{},
	}
}

// Invoke implements Client.
func (c *RESTClient) Invoke(ctx context.Context, method string, params Params) (any, error) {
	route, ok := c.routes[method]
	if !ok {
		return nil, &Error{Method: method, Err: fmt.Errorf("%w: %q", ErrUnknownMethod, method)}
	}

	path, rest, err := expandPath(route.Path, params)
	if err != nil {
		return nil, &Error{Method: method, Err: err}
	}

	var body io.Reader
	reqURL := c.baseURL + path
	if route.HTTPMethod == http.MethodGet {
		if len(rest) > 0 {
			q := url.Values{}
			for k, v := range rest {
				q.Set(k, fmt.Sprintf("%v", v))
			}
			reqURL += "?" + q.Encode()
		}
	} else if len(rest) > 0 {
		payload, err := json.Marshal(rest)
		if err != nil {
			return nil, &Error{Method: method, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, route.HTTPMethod, reqURL, body)
	if err != nil {
		return nil, &Error{Method: method, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debug(log.CatTransport, "invoking", "method", method, "url", reqURL)

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Network-level failures (timeouts, resets) are worth retrying.
		return nil, &Error{Method: method, Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, StatusCode: resp.StatusCode, Transient: true, Err: err}
	}

	if resp.StatusCode >= 400 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &Error{
			Method:     method,
			StatusCode: resp.StatusCode,
			Transient:  transient,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(data))),
		}
	}

	if len(data) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &Error{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return result, nil
}

// expandPath substitutes {name} placeholders from params and returns the
// expanded path along with the params that were not consumed by it.
func expandPath(path string, params Params) (string, Params, error) {
	rest := make(Params, len(params))
	for k, v := range params {
		rest[k] = v
	}

	var sb strings.Builder
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		sb.WriteByte('/')
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			name := segment[1 : len(segment)-1]
			value, ok := rest[name]
			if !ok {
				return "", nil, fmt.Errorf("missing path parameter %q for %q", name, path)
			}
			delete(rest, name)
			sb.WriteString(url.PathEscape(fmt.Sprintf("%v", value)))
			continue
		}
		sb.WriteString(segment)
	}
	return sb.String(), rest, nil
}

var _ Client = (*RESTClient)(nil)
