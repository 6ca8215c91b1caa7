package cli

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// CLI is the root command structure
type CLI struct {
	Globals

	Auth   AuthCmd   `cmd:"" help:"Authentication commands"`
	Config ConfigCmd `cmd:"" help:"Credential profile commands"`

	Create CreateCmd `cmd:"" help:"Create an entity from a payload file"`
	Get    GetCmd    `cmd:"" help:"Read an entity by id or name"`
	Update UpdateCmd `cmd:"" help:"Update an entity version in place"`
	Delete DeleteCmd `cmd:"" help:"Delete an entity version or all versions"`
	List   ListCmd   `cmd:"" help:"List the latest version of each entity"`
	Search SearchCmd `cmd:"" help:"Full-text search across entities"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
	Version            VersionCmd                   `cmd:"" help:"Show version information"`
}

// BeforeApply hook runs before any command execution
// It wires the credential loader, service provider and formatter into kong
func (c *CLI) BeforeApply(ctx *kong.Context) error {
	// The profile flag wins over the persisted pointer; the loader reads
	// it through the environment
	if c.Profile != "" {
		if err := os.Setenv(config.EnvVar("profile"), c.Profile); err != nil {
			return err
		}
	}

	loader := config.NewLoader()
	formatter := &FormatterProvider{
		Formatter: output.New(c.ResolvedOutput()),
	}

	ctx.Bind(loader)
	ctx.Bind(formatter)
	ctx.Bind(NewServiceProvider(loader, c.RateLimit))
	ctx.Bind(&c.Globals)

	return nil
}

// AuthCmd holds authentication subcommands
type AuthCmd struct {
	Login   AuthLoginCmd   `cmd:"" help:"Store credentials for a profile"`
	Refresh AuthRefreshCmd `cmd:"" help:"Force a token refresh"`
	Status  AuthStatusCmd  `cmd:"" help:"Show the resolved auth state"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get      ConfigGetCmd      `cmd:"" help:"Get a credential value"`
	Set      ConfigSetCmd      `cmd:"" help:"Set a credential value in the profile file"`
	Path     ConfigPathCmd     `cmd:"" help:"Show credentials file path"`
	Use      ConfigUseCmd      `cmd:"" help:"Switch the current profile"`
	Profiles ConfigProfilesCmd `cmd:"" help:"List stored profiles"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context) error {
	version := ctx.Model.Vars()["version"]
	fmt.Printf("myd version %s (api level %s)\n", version, ctx.Model.Vars()["apilevel"])
	return nil
}
