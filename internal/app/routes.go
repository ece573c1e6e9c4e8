package app

import (
	"net/http"

	"github.com/zjrosen/trove/internal/transport"
)

// apiRoutes maps every declared transport method onto the tracking
// service's REST surface.
func apiRoutes() map[string]transport.Route {
	return map[string]transport.Route{
		"labels.list":   {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/labels"},
		"labels.create": {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/labels"},
		"labels.update": {HTTPMethod: http.MethodPatch, Path: "/repos/{repo}/labels/{name}"},
		"labels.delete": {HTTPMethod: http.MethodDelete, Path: "/repos/{repo}/labels/{name}"},

		"milestones.list":   {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/milestones"},
		"milestones.create": {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/milestones"},
		"milestones.update": {HTTPMethod: http.MethodPatch, Path: "/repos/{repo}/milestones/{id}"},
		"milestones.close":  {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/milestones/{id}/close"},

		"issues.list":   {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/issues"},
		"issues.get":    {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/issues/{id}"},
		"issues.create": {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/issues"},
		"issues.update": {HTTPMethod: http.MethodPatch, Path: "/repos/{repo}/issues/{id}"},
		"issues.close":  {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/issues/{id}/close"},

		"comments.list":   {HTTPMethod: http.MethodGet, Path: "/repos/{repo}/comments"},
		"comments.create": {HTTPMethod: http.MethodPost, Path: "/repos/{repo}/issues/{issue}/comments"},
		"comments.delete": {HTTPMethod: http.MethodDelete, Path: "/repos/{repo}/comments/{id}"},
	}
}
