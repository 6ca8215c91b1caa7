package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/output"
)

// secretKeys are masked in listings and lookups.
var secretKeys = []string{
	config.KeyPassword,
	config.KeyAccessToken,
	config.KeyRefreshToken,
	config.KeyPersonalAccessToken,
}

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key  string `arg:"" optional:"" help:"Credential key to get; omit to list all"`
	Show bool   `help:"Print secret values unmasked"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(loader *config.Loader, fp *FormatterProvider) error {
	profile := loader.CurrentProfile()
	file, err := loader.LoadFile(profile)
	if err != nil {
		return err
	}
	env := loader.LoadEnv()

	resolve := func(key string) (string, string) {
		if v, ok := env.Get(key); ok {
			return v, "env"
		}
		if v, ok := file.Get(key); ok {
			return v, "file"
		}
		return "", ""
	}

	if cmd.Key != "" {
		if !slices.Contains(config.Keys, cmd.Key) {
			return output.NewCLIError(output.ExitUsage,
				fmt.Sprintf("unknown credential key: %s", cmd.Key))
		}
		value, _ := resolve(cmd.Key)
		if !cmd.Show {
			value = maskKey(cmd.Key, value)
		}
		fmt.Println(value)
		return nil
	}

	records := make([]map[string]any, 0, len(config.Keys))
	for _, key := range config.Keys {
		value, origin := resolve(key)
		if !cmd.Show {
			value = maskKey(key, value)
		}
		records = append(records, map[string]any{
			"key":    key,
			"value":  value,
			"origin": origin,
		})
	}
	return fp.Formatter.PrintList(records, []output.Column{
		{Name: "Key", Key: "key"},
		{Name: "Value", Key: "value"},
		{Name: "Origin", Key: "origin"},
	})
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Credential key to set"`
	Value string `arg:"" help:"Value to set"`
}

// Run executes the set command. Values always go to the profile file; the
// environment is read-only.
func (cmd *ConfigSetCmd) Run(loader *config.Loader, fp *FormatterProvider) error {
	if !slices.Contains(config.Keys, cmd.Key) {
		return output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("unknown credential key: %s", cmd.Key))
	}

	profile := loader.CurrentProfile()
	if err := loader.WriteCredentials(profile, map[string]string{cmd.Key: cmd.Value}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Set %s in profile %q\n", cmd.Key, profile)
	return nil
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(loader *config.Loader) error {
	path := loader.Path()
	fmt.Println(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(os.Stderr, "(file exists)\n")
	}
	return nil
}

// ConfigUseCmd switches the current profile pointer
type ConfigUseCmd struct {
	Name string `arg:"" help:"Profile to switch to"`
}

// Run executes the use command
func (cmd *ConfigUseCmd) Run(loader *config.Loader) error {
	if err := loader.SetCurrentProfile(cmd.Name); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Switched to profile %q\n", cmd.Name)
	return nil
}

// ConfigProfilesCmd lists stored profiles
type ConfigProfilesCmd struct{}

// Run executes the profiles command
func (cmd *ConfigProfilesCmd) Run(loader *config.Loader, fp *FormatterProvider) error {
	profiles, err := loader.Profiles()
	if err != nil {
		return err
	}
	current := loader.CurrentProfile()
	if !slices.Contains(profiles, current) {
		profiles = append(profiles, current)
	}

	records := make([]map[string]any, 0, len(profiles))
	for _, name := range profiles {
		marker := ""
		if name == current {
			marker = "*"
		}
		records = append(records, map[string]any{
			"name":    name,
			"current": marker,
		})
	}
	return fp.Formatter.PrintList(records, []output.Column{
		{Name: "Profile", Key: "name"},
		{Name: "Current", Key: "current"},
	})
}

// maskKey masks secret values, showing only the last 4 characters.
func maskKey(key, value string) string {
	if value == "" || !slices.Contains(secretKeys, key) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
