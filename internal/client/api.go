package client

import "strings"

const apiBase = "/api/v1"

// ProjectPath builds the base API path for project entities:
// /api/v1/projects[/<name>].
func ProjectPath(name string) string {
	if name == "" {
		return apiBase + "/projects"
	}
	return apiBase + "/projects/" + name
}

// ContextPath builds the context API path for versioned entities scoped to
// a project: /api/v1/-/<project>/<entityType>[/<id>].
func ContextPath(project, entityType, id string) string {
	path := apiBase + "/-/" + project + "/" + entityType
	if id != "" {
		path += "/" + id
	}
	return path
}

// SearchPath builds the full-text search path for a project.
func SearchPath(project string) string {
	return apiBase + "/-/" + project + "/search"
}

// ParsedAPI is the decomposition of an API path.
type ParsedAPI struct {
	EntityType string
	EntityID   string
	Context    bool
}

// ParseAPI extracts entity type, entity id and the context flag from an
// API path. Context paths carry a "-/<project>/" segment after the base.
func ParseAPI(api string) (ParsedAPI, bool) {
	api = strings.TrimPrefix(api, apiBase+"/")

	var out ParsedAPI
	if strings.HasPrefix(api, "-/") {
		out.Context = true
		api = api[2:]
	}

	parts := strings.Split(strings.TrimSuffix(api, "/"), "/")
	switch {
	case !out.Context && len(parts) == 1:
		out.EntityType = parts[0]
	case !out.Context && len(parts) == 2:
		out.EntityType, out.EntityID = parts[0], parts[1]
	case out.Context && len(parts) == 2:
		// -/<project>/<entityType>
		out.EntityType = parts[1]
	case out.Context && len(parts) == 3:
		// -/<project>/<entityType>/<entityID>
		out.EntityType, out.EntityID = parts[1], parts[2]
	default:
		return ParsedAPI{}, false
	}
	return out, true
}
