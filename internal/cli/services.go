package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelyard/myd/internal/auth"
	"github.com/modelyard/myd/internal/client"
	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/output"
	"github.com/modelyard/myd/internal/store"
)

// ServiceProvider lazily creates and caches the entity client. With no
// backend endpoint configured anywhere, commands run against the
// in-process store instead of failing.
type ServiceProvider struct {
	loader    *config.Loader
	rateLimit float64

	once      sync.Once
	client    client.Client
	creds     *config.Credentials
	refresher *auth.Service
	err       error
}

// NewServiceProvider creates a ServiceProvider with the given loader.
// A positive rateLimit throttles backend requests to that many per second.
func NewServiceProvider(loader *config.Loader, rateLimit float64) *ServiceProvider {
	return &ServiceProvider{loader: loader, rateLimit: rateLimit}
}

// Client returns the entity client, creating it on first call.
func (sp *ServiceProvider) Client(ctx context.Context) (client.Client, error) {
	sp.once.Do(func() {
		if !sp.endpointConfigured() {
			sp.client = store.New()
			return
		}

		creds, err := config.Open(sp.loader)
		if err != nil {
			sp.err = err
			return
		}
		sp.creds = creds
		sp.refresher = auth.NewService(creds)

		var opts []client.RemoteOption
		if sp.rateLimit > 0 {
			opts = append(opts, client.WithRateLimit(sp.rateLimit, 1))
		}
		remote, err := client.NewRemote(ctx, creds, sp.refresher, opts...)
		if err != nil {
			sp.err = err
			return
		}
		sp.client = remote
	})
	return sp.client, sp.err
}

// Credentials returns the credential store behind a remote client.
func (sp *ServiceProvider) Credentials(ctx context.Context) (*config.Credentials, *auth.Service, error) {
	if _, err := sp.Client(ctx); err != nil {
		return nil, nil, err
	}
	if sp.creds == nil {
		return nil, nil, output.NewCLIError(output.ExitConfig, "no backend endpoint configured").
			WithHint(fmt.Sprintf("set %s or run: myd auth login", config.EnvVar(config.KeyEndpoint)))
	}
	return sp.creds, sp.refresher, nil
}

func (sp *ServiceProvider) endpointConfigured() bool {
	if sp.loader.LoadEnv().Has(config.KeyEndpoint) {
		return true
	}
	file, err := sp.loader.LoadFile(sp.loader.CurrentProfile())
	if err != nil {
		return false
	}
	return file.Has(config.KeyEndpoint)
}
