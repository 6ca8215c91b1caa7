package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/modelyard/myd/internal/auth"
	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/output"
)

// AuthLoginCmd stores credentials for a profile and verifies them with a
// token exchange when a personal access token is given.
type AuthLoginCmd struct {
	Endpoint string `help:"Backend endpoint URL"`
	Basic    bool   `help:"Use username/password instead of a token"`
}

// Run executes the login command
func (cmd *AuthLoginCmd) Run(g *Globals, loader *config.Loader) error {
	reader := bufio.NewReader(os.Stdin)
	profile := loader.CurrentProfile()
	values := make(map[string]string)

	endpoint := cmd.Endpoint
	if endpoint == "" {
		if g.NoInput {
			return output.NewCLIError(output.ExitUsage, "endpoint required with --no-input")
		}
		endpoint = prompt(reader, "Endpoint URL: ")
	}
	if endpoint == "" {
		return output.NewCLIError(output.ExitUsage, "endpoint is required")
	}
	values[config.KeyEndpoint] = endpoint

	if g.NoInput {
		return output.NewCLIError(output.ExitUsage, "login needs interactive prompts").
			WithHint("set MYD_* environment variables instead")
	}

	if cmd.Basic {
		user := prompt(reader, "Username: ")
		password, err := promptSecret("Password: ")
		if err != nil {
			return err
		}
		values[config.KeyUser] = user
		values[config.KeyPassword] = password
	} else {
		issuer := prompt(reader, "Issuer URL (for token exchange, optional): ")
		if issuer != "" {
			values[config.KeyIssuer] = issuer
			values[config.KeyClientID] = prompt(reader, "OAuth client id: ")
		}
		token, err := promptSecret("Personal access token: ")
		if err != nil {
			return err
		}
		if token == "" {
			return output.NewCLIError(output.ExitUsage, "a token is required")
		}
		if issuer != "" {
			values[config.KeyPersonalAccessToken] = token
		} else {
			values[config.KeyAccessToken] = token
		}
	}

	if err := loader.WriteCredentials(profile, values); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Stored credentials in profile %q (%s)\n", profile, loader.Path())

	// A personal access token is only useful once exchanged; verify it now
	if values[config.KeyPersonalAccessToken] != "" {
		creds, err := config.Open(loader)
		if err != nil {
			return err
		}
		creds.UseFile()
		token, err := auth.NewService(creds).Refresh(context.Background())
		if err != nil {
			return output.NewCLIError(output.ExitAuth,
				fmt.Sprintf("token exchange failed: %v", err))
		}
		if token.Expiry.IsZero() {
			fmt.Fprintf(os.Stderr, "Token exchange succeeded\n")
		} else {
			fmt.Fprintf(os.Stderr, "Token exchange succeeded (session expires %s)\n",
				token.Expiry.Format(time.RFC3339))
		}
	}
	return nil
}

// AuthRefreshCmd forces one refresh flow against the token endpoint.
type AuthRefreshCmd struct{}

// Run executes the refresh command
func (cmd *AuthRefreshCmd) Run(sp *ServiceProvider) error {
	ctx := context.Background()
	_, refresher, err := sp.Credentials(ctx)
	if err != nil {
		return err
	}
	token, err := refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	if token.Expiry.IsZero() {
		fmt.Fprintf(os.Stderr, "Tokens refreshed\n")
	} else {
		fmt.Fprintf(os.Stderr, "Tokens refreshed (expires %s)\n", token.Expiry.Format(time.RFC3339))
	}
	return nil
}

// AuthStatusCmd shows the resolved auth state for the current profile.
type AuthStatusCmd struct{}

// Run executes the status command
func (cmd *AuthStatusCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ctx := context.Background()
	cl, err := sp.Client(ctx)
	if err != nil {
		return err
	}
	if cl.IsLocal() {
		return fp.Formatter.Print(map[string]any{
			"backend": "local",
			"auth":    string(auth.TypeNone),
		})
	}

	creds, refresher, err := sp.Credentials(ctx)
	if err != nil {
		return err
	}
	active := creds.Active()
	record := map[string]any{
		"backend": creds.Endpoint(),
		"profile": creds.Profile(),
		"origin":  string(creds.Origin()),
		"auth":    string(auth.Resolve(active)),
		"refresh": auth.Resolve(active).Refreshable(),
	}
	if v, ok := active.Get(config.KeyUser); ok {
		record["user"] = v
	}
	if token := refresher.Token(); token != nil && !token.Expiry.IsZero() {
		record["session_expires"] = token.Expiry.Format(time.RFC3339)
		record["session_valid"] = token.Valid()
	}
	return fp.Formatter.Print(record)
}

// prompt prints a prompt and reads a line of input
func prompt(reader *bufio.Reader, text string) string {
	fmt.Fprint(os.Stderr, text)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptSecret reads a line without echoing it.
func promptSecret(text string) (string, error) {
	fmt.Fprint(os.Stderr, text)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
