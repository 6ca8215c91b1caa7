package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/modelyard/myd/internal/client"
	"github.com/modelyard/myd/internal/output"
)

// entityColumns is the default listing layout.
var entityColumns = []output.Column{
	{Name: "Name", Key: "name"},
	{Name: "ID", Key: "id", Width: 36},
	{Name: "Kind", Key: "kind"},
	{Name: "Updated", Key: "metadata.updated"},
}

// apiFor builds the API path for an entity reference. Projects live on the
// base API and are keyed by name; everything else is project-scoped.
func apiFor(entityType, project, id string) (string, error) {
	if entityType == "projects" {
		return client.ProjectPath(id), nil
	}
	if project == "" {
		return "", output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("entity type %q requires --project", entityType))
	}
	return client.ContextPath(project, entityType, id), nil
}

// loadPayload reads an entity payload from a JSON5 file, or stdin for "-".
func loadPayload(path string) (map[string]any, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var obj map[string]any
	if err := json5.Unmarshal(raw, &obj); err != nil {
		return nil, output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("invalid payload %s: %v", path, err))
	}
	return obj, nil
}

// CreateCmd creates an entity from a payload file.
type CreateCmd struct {
	Type    string `arg:"" help:"Entity type (projects, functions, artifacts, ...)"`
	File    string `short:"f" required:"" predictor:"file" help:"Payload file (JSON5), or - for stdin"`
	Project string `short:"p" env:"MYD_PROJECT" help:"Project scope for versioned entities"`
}

// Run executes the create command
func (cmd *CreateCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}
	obj, err := loadPayload(cmd.File)
	if err != nil {
		return err
	}
	api, err := apiFor(cmd.Type, cmd.Project, "")
	if err != nil {
		return err
	}
	created, err := cl.Create(ctx, api, obj, client.NewOptions())
	if err != nil {
		return err
	}
	return fp.Formatter.Print(created)
}

// GetCmd reads one entity by version id, or the latest version by name.
type GetCmd struct {
	Type    string `arg:"" help:"Entity type"`
	ID      string `arg:"" help:"Entity id, or name with --name"`
	Project string `short:"p" env:"MYD_PROJECT" help:"Project scope for versioned entities"`
	Name    bool   `help:"Treat the argument as a name and read the latest version"`
}

// Run executes the get command
func (cmd *GetCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}

	var obj map[string]any
	if cmd.Name && cmd.Type != "projects" {
		api, err := apiFor(cmd.Type, cmd.Project, "")
		if err != nil {
			return err
		}
		obj, err = cl.ReadFirst(ctx, api, client.NewOptions().WithParam("name", cmd.ID))
		if err != nil {
			return err
		}
	} else {
		api, err := apiFor(cmd.Type, cmd.Project, cmd.ID)
		if err != nil {
			return err
		}
		obj, err = cl.Read(ctx, api, client.NewOptions())
		if err != nil {
			return err
		}
	}
	return fp.Formatter.Print(obj)
}

// UpdateCmd updates one entity version in place.
type UpdateCmd struct {
	Type    string `arg:"" help:"Entity type"`
	ID      string `arg:"" help:"Entity id"`
	File    string `short:"f" required:"" predictor:"file" help:"Payload file (JSON5), or - for stdin"`
	Project string `short:"p" env:"MYD_PROJECT" help:"Project scope for versioned entities"`
}

// Run executes the update command
func (cmd *UpdateCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}
	obj, err := loadPayload(cmd.File)
	if err != nil {
		return err
	}
	api, err := apiFor(cmd.Type, cmd.Project, cmd.ID)
	if err != nil {
		return err
	}
	updated, err := cl.Update(ctx, api, obj, client.NewOptions())
	if err != nil {
		return err
	}
	return fp.Formatter.Print(updated)
}

// DeleteCmd deletes one entity version, or every version of a name.
type DeleteCmd struct {
	Type    string `arg:"" help:"Entity type"`
	ID      string `arg:"" help:"Entity id or name"`
	Project string `short:"p" env:"MYD_PROJECT" help:"Project scope for versioned entities"`
	Cascade bool   `help:"Delete every version of the named entity"`
}

// Run executes the delete command
func (cmd *DeleteCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}
	api, err := apiFor(cmd.Type, cmd.Project, cmd.ID)
	if err != nil {
		return err
	}
	opts := client.NewOptions()
	if cmd.Cascade {
		opts = opts.WithParam("cascade", "true")
	}
	result, err := cl.Delete(ctx, api, opts)
	if err != nil {
		return err
	}
	return fp.Formatter.Print(result)
}

// ListCmd lists the latest version of each entity of a type.
type ListCmd struct {
	Type        string `arg:"" help:"Entity type"`
	Project     string `short:"p" env:"MYD_PROJECT" help:"Project scope for versioned entities"`
	Kind        string `help:"Filter by exact kind"`
	Name        string `help:"Scope the listing to one entity name"`
	Function    string `help:"Filter by producing function reference"`
	Task        string `help:"Filter by producing task reference"`
	AllVersions bool   `help:"Return every stored version, not just the latest"`
}

// Run executes the list command
func (cmd *ListCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}
	api, err := apiFor(cmd.Type, cmd.Project, "")
	if err != nil {
		return err
	}

	opts := client.NewOptions()
	if cmd.Kind != "" {
		opts = opts.WithParam("kind", cmd.Kind)
	}
	if cmd.Name != "" {
		opts = opts.WithParam("name", cmd.Name)
	}
	if cmd.Function != "" {
		opts = opts.WithParam("function", cmd.Function)
	}
	if cmd.Task != "" {
		opts = opts.WithParam("task", cmd.Task)
	}
	if cmd.AllVersions {
		opts = opts.WithParam("versions", "all")
	}

	objects, err := cl.List(ctx, api, opts)
	if err != nil {
		return err
	}
	return fp.Formatter.PrintList(objects, entityColumns)
}

// SearchCmd runs a full-text query with typed filters.
type SearchCmd struct {
	Query       string   `arg:"" optional:"" help:"Full-text query"`
	Project     string   `short:"p" env:"MYD_PROJECT" required:"" help:"Project scope"`
	Types       []string `help:"Restrict to entity types (repeatable)"`
	Name        string   `help:"Filter by exact entity name"`
	Kind        string   `help:"Filter by exact kind"`
	Description string   `help:"Filter by description text"`
	Labels      []string `help:"Require all labels (repeatable)"`
	Since       string   `help:"Only entities updated after this RFC3339 time"`
	Until       string   `help:"Only entities updated before this RFC3339 time"`
	Size        int      `help:"Page size" default:"0"`
	Sort        string   `help:"Sort expression, e.g. metadata.updated,DESC"`
}

// Run executes the search command
func (cmd *SearchCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}

	filter := client.NewSearchFilter().
		EntityTypes(cmd.Types...).
		Name(cmd.Name).
		Kind(cmd.Kind).
		Description(cmd.Description).
		Labels(cmd.Labels...)
	if cmd.Since != "" {
		t, err := time.Parse(time.RFC3339, cmd.Since)
		if err != nil {
			return output.NewCLIError(output.ExitUsage, fmt.Sprintf("invalid --since: %v", err))
		}
		filter = filter.Since(t)
	}
	if cmd.Until != "" {
		t, err := time.Parse(time.RFC3339, cmd.Until)
		if err != nil {
			return output.NewCLIError(output.ExitUsage, fmt.Sprintf("invalid --until: %v", err))
		}
		filter = filter.Until(t)
	}

	opts := client.NewOptions()
	if cmd.Size > 0 {
		opts = opts.WithParam("size", fmt.Sprintf("%d", cmd.Size))
	}
	if cmd.Sort != "" {
		opts = opts.WithParam("sort", cmd.Sort)
	}

	objects, err := cl.Search(ctx, client.SearchPath(cmd.Project), strings.TrimSpace(cmd.Query), filter, opts)
	if err != nil {
		return err
	}
	return fp.Formatter.PrintList(objects, entityColumns)
}
