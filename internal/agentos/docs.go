package agentos

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Harshitk-cp/agente-basico/internal/buildconfig"
	"github.com/go-chi/chi/v5"
)

type routeDoc struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

var routeSummaries = map[string]string{
	"GET /health":                     "Health check",
	"GET /docs":                       "API documentation",
	"GET /openapi.json":               "OpenAPI document",
	"GET /config":                     "AgentOS configuration",
	"GET /metrics":                    "Request and run counters",
	"GET /agents":                     "List agents",
	"GET /agents/{agent_id}":          "Get an agent",
	"POST /agents/{agent_id}/runs":    "Run an agent",
	"GET /sessions":                   "List sessions",
	"GET /sessions/{session_id}":      "Get a session",
	"GET /sessions/{session_id}/runs": "List the runs of a session",
	"DELETE /sessions/{session_id}":   "Delete a session and its runs",
}

// collectRoutes lists every route registered on r, sorted by path.
func collectRoutes(r chi.Routes) []routeDoc {
	var docs []routeDoc
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimSuffix(route, "/")
		if route == "" {
			route = "/"
		}
		docs = append(docs, routeDoc{
			Method:  method,
			Path:    route,
			Summary: routeSummaries[method+" "+route],
		})
		return nil
	})
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Path != docs[j].Path {
			return docs[i].Path < docs[j].Path
		}
		return docs[i].Method < docs[j].Method
	})
	return docs
}

func (o *AgentOS) openAPI() map[string]any {
	paths := make(map[string]map[string]any)
	for _, d := range o.docs {
		op := map[string]any{
			"summary":   d.Summary,
			"responses": map[string]any{"200": map[string]any{"description": "OK"}},
		}
		if params := pathParams(d.Path); len(params) > 0 {
			op["parameters"] = params
		}
		if d.Method == http.MethodPost && strings.HasSuffix(d.Path, "/runs") {
			op["requestBody"] = map[string]any{
				"content": map[string]any{
					"application/json":                  map[string]any{"schema": runRequestSchema},
					"application/x-www-form-urlencoded": map[string]any{"schema": runRequestSchema},
				},
			}
		}
		if paths[d.Path] == nil {
			paths[d.Path] = make(map[string]any)
		}
		paths[d.Path][strings.ToLower(d.Method)] = op
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       o.ID,
			"description": o.Description,
			"version":     buildconfig.Version(),
		},
		"paths": paths,
	}
}

var runRequestSchema = map[string]any{
	"type":     "object",
	"required": []string{"message"},
	"properties": map[string]any{
		"message":    map[string]any{"type": "string"},
		"session_id": map[string]any{"type": "string"},
		"user_id":    map[string]any{"type": "string"},
	},
}

func pathParams(path string) []map[string]any {
	var out []map[string]any
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			out = append(out, map[string]any{
				"name":     strings.Trim(seg, "{}"),
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}
	}
	return out
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
<title>%s - Docs</title>
<meta charset="utf-8">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: "/openapi.json", dom_id: "#swagger-ui"});</script>
</body>
</html>
`

func (o *AgentOS) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, docsPage, o.ID)
}

func (o *AgentOS) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.openAPI())
}
