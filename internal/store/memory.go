package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelyard/myd/internal/client"
	"github.com/modelyard/myd/internal/errdefs"
)

// latestKey is the reserved version slot holding the newest record of a
// name. Entity versions never use it as an id.
const latestKey = "latest"

// container holds every version of one named entity, keyed by version id,
// plus the latest slot.
type container map[string]map[string]any

// Memory is an in-process entity store with the same operation contract as
// the remote client. It keeps every version of every entity and serves
// reads by version id or by name (latest). State is process-local and lost
// on exit.
type Memory struct {
	mu     sync.Mutex
	tables map[string]map[string]container
}

var _ client.Client = (*Memory)(nil)

// New returns an empty store.
func New() *Memory {
	return &Memory{tables: make(map[string]map[string]container)}
}

// IsLocal reports whether the client is backed by the in-memory store.
func (m *Memory) IsLocal() bool { return true }

// Create stores a new entity version. Reusing an existing version id is
// rejected; base entities are single-versioned and keyed by name.
func (m *Memory) Create(ctx context.Context, api string, obj map[string]any, opts client.Options) (map[string]any, error) {
	parsed, ok := client.ParseAPI(api)
	if !ok {
		return nil, fmt.Errorf("%w: malformed api path %q", errdefs.ErrBadRequest, api)
	}
	name := stringField(obj, "name")
	id := stringField(obj, "id")
	if name == "" {
		name = id
	}
	if name == "" {
		return nil, fmt.Errorf("%w: entity has no name or id", errdefs.ErrBadRequest)
	}
	if !parsed.Context {
		// Base entities carry a single version under their own name
		id = name
	}
	if id == "" {
		return nil, fmt.Errorf("%w: entity has no id", errdefs.ErrBadRequest)
	}
	if id == latestKey {
		// Would silently shadow the latest slot
		return nil, fmt.Errorf("%w: %q is a reserved version id", errdefs.ErrBadRequest, latestKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.tables[parsed.EntityType]
	if table == nil {
		table = make(map[string]container)
		m.tables[parsed.EntityType] = table
	}
	versions := table[name]
	if versions == nil {
		versions = make(container)
		table[name] = versions
	}
	if _, exists := versions[id]; exists {
		return nil, fmt.Errorf("%w: Duplicated entity %s/%s", errdefs.ErrAlreadyExists, parsed.EntityType, id)
	}

	versions[id] = obj
	versions[latestKey] = obj
	return obj, nil
}

// Read returns an entity by version id, falling back to the latest version
// of the entity with that name.
func (m *Memory) Read(ctx context.Context, api string, opts client.Options) (map[string]any, error) {
	parsed, ok := client.ParseAPI(api)
	if !ok || parsed.EntityID == "" {
		return nil, fmt.Errorf("%w: malformed api path %q", errdefs.ErrBadRequest, api)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, found := m.lookup(parsed.EntityType, parsed.EntityID)
	if !found {
		return nil, fmt.Errorf("%w: No such EntityName %s/%s", errdefs.ErrNotExists, parsed.EntityType, parsed.EntityID)
	}
	return obj, nil
}

// ReadFirst returns the first entity of a listing.
func (m *Memory) ReadFirst(ctx context.Context, api string, opts client.Options) (map[string]any, error) {
	objects, err := m.List(ctx, api, opts)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: no entities found at %s", errdefs.ErrNotExists, api)
	}
	return objects[0], nil
}

// Update replaces an existing version in place. If the version is the
// current latest, the latest slot follows it.
func (m *Memory) Update(ctx context.Context, api string, obj map[string]any, opts client.Options) (map[string]any, error) {
	parsed, ok := client.ParseAPI(api)
	if !ok || parsed.EntityID == "" {
		return nil, fmt.Errorf("%w: malformed api path %q", errdefs.ErrBadRequest, api)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, versions := range m.tables[parsed.EntityType] {
		if _, exists := versions[parsed.EntityID]; !exists {
			continue
		}
		wasLatest := stringField(versions[latestKey], "id") == parsed.EntityID
		versions[parsed.EntityID] = obj
		if wasLatest || !parsed.Context {
			versions[latestKey] = obj
		}
		return obj, nil
	}
	return nil, fmt.Errorf("%w: No such EntityName %s/%s", errdefs.ErrNotExists, parsed.EntityType, parsed.EntityID)
}

// Delete removes a single version, or the whole entity when the id names a
// container or the caller asks to cascade. Removing the latest version
// promotes the newest remaining one by creation timestamp.
func (m *Memory) Delete(ctx context.Context, api string, opts client.Options) (map[string]any, error) {
	parsed, ok := client.ParseAPI(api)
	if !ok || parsed.EntityID == "" {
		return nil, fmt.Errorf("%w: malformed api path %q", errdefs.ErrBadRequest, api)
	}
	cascade := opts.Param("cascade") == "true"

	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.tables[parsed.EntityType]

	// Deleting by name drops every version at once
	if versions, exists := table[parsed.EntityID]; exists {
		if _, isVersion := versions[parsed.EntityID]; !isVersion || cascade || !parsed.Context {
			delete(table, parsed.EntityID)
			m.dropIfEmpty(parsed.EntityType)
			return map[string]any{"deleted": true}, nil
		}
	}

	for name, versions := range table {
		if _, exists := versions[parsed.EntityID]; !exists {
			continue
		}
		delete(versions, parsed.EntityID)
		m.promoteLatest(versions)
		if len(versions) == 0 {
			delete(table, name)
		}
		m.dropIfEmpty(parsed.EntityType)
		return map[string]any{"deleted": true}, nil
	}
	return nil, fmt.Errorf("%w: No such EntityName %s/%s", errdefs.ErrNotExists, parsed.EntityType, parsed.EntityID)
}

// List returns the latest version of every entity of the path's type,
// filtered by the kind and producer query parameters. A name query
// parameter (or a path-embedded name) scopes the listing to one entity;
// versions=all returns every stored version instead of the latest.
func (m *Memory) List(ctx context.Context, api string, opts client.Options) ([]map[string]any, error) {
	parsed, ok := client.ParseAPI(api)
	if !ok {
		return nil, fmt.Errorf("%w: malformed api path %q", errdefs.ErrBadRequest, api)
	}
	nameScope := parsed.EntityID
	if n := opts.Param("name"); n != "" {
		nameScope = n
	}
	allVersions := opts.Param("versions") == "all"

	m.mu.Lock()
	defer m.mu.Unlock()

	var objects []map[string]any
	for name, versions := range m.tables[parsed.EntityType] {
		if nameScope != "" && name != nameScope {
			continue
		}
		if allVersions {
			for id, obj := range versions {
				if id == latestKey {
					continue
				}
				if matches(obj, opts) {
					objects = append(objects, obj)
				}
			}
			continue
		}
		if obj, exists := versions[latestKey]; exists && matches(obj, opts) {
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

// Search is not available without a backend.
func (m *Memory) Search(ctx context.Context, api, query string, filter *client.SearchFilter, opts client.Options) ([]map[string]any, error) {
	return nil, fmt.Errorf("%w: search requires a remote backend", errdefs.ErrUnsupported)
}

// lookup resolves an id to a record: exact version first, then the latest
// version of the entity with that name.
func (m *Memory) lookup(entityType, id string) (map[string]any, bool) {
	table := m.tables[entityType]
	for _, versions := range table {
		if obj, exists := versions[id]; exists && id != latestKey {
			return obj, true
		}
	}
	if versions, exists := table[id]; exists {
		if obj, exists := versions[latestKey]; exists {
			return obj, true
		}
	}
	return nil, false
}

// promoteLatest recomputes the latest slot as the remaining version with
// the newest creation timestamp.
func (m *Memory) promoteLatest(versions container) {
	delete(versions, latestKey)

	var newest map[string]any
	var newestAt time.Time
	for id, obj := range versions {
		if id == latestKey {
			continue
		}
		created := createdAt(obj)
		if newest == nil || created.After(newestAt) {
			newest, newestAt = obj, created
		}
	}
	if newest != nil {
		versions[latestKey] = newest
	}
}

func (m *Memory) dropIfEmpty(entityType string) {
	if len(m.tables[entityType]) == 0 {
		delete(m.tables, entityType)
	}
}

// matches applies listing filters: exact kind, and producer references in
// the entity spec for function/task/workflow.
func matches(obj map[string]any, opts client.Options) bool {
	if kind := opts.Param("kind"); kind != "" && stringField(obj, "kind") != kind {
		return false
	}
	for _, producer := range []string{"function", "task", "workflow"} {
		want := opts.Param(producer)
		if want == "" {
			continue
		}
		spec, _ := obj["spec"].(map[string]any)
		if stringField(spec, producer) != want {
			return false
		}
	}
	return true
}

// createdAt parses the creation timestamp, treating malformed or missing
// values as the epoch so they never win the latest slot.
func createdAt(obj map[string]any) time.Time {
	metadata, _ := obj["metadata"].(map[string]any)
	raw := stringField(metadata, "created")
	if raw == "" {
		return time.Unix(0, 0).UTC()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func stringField(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	v, _ := obj[key].(string)
	return v
}
