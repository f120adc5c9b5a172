package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/afero"

	"github.com/blackwell-systems/platform-cli/internal/catalog"
	"github.com/blackwell-systems/platform-cli/internal/compute"
	"github.com/blackwell-systems/platform-cli/internal/config"
	"github.com/blackwell-systems/platform-cli/internal/credentials"
	"github.com/blackwell-systems/platform-cli/internal/dns"
	"github.com/blackwell-systems/platform-cli/internal/identity"
	"github.com/blackwell-systems/platform-cli/internal/storage"
)

// session is what one invocation needs to talk to the provider: the resolved
// configuration, the identity built from it, and a logger.
type session struct {
	cfg *config.Config
	id  *identity.Context
	log logr.Logger
}

// newSession loads the configuration and builds the identity. A missing key
// pair falls back to the [default] profile of the credentials file.
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Verbosity)

	if err := cfg.RequireCredentials(); err != nil {
		store := credentials.NewStore(afero.NewOsFs(), cfg.CredentialsFile)
		pair, loadErr := store.Load()
		if loadErr != nil {
			return nil, errors.Join(err, loadErr)
		}
		logger.V(1).Info("using stored credentials", "file", store.Path())
		cfg.AccessKey, cfg.SecretKey = pair.AccessKey, pair.SecretKey
	}

	id, err := identity.New(cfg.AccessKey, cfg.SecretKey, cfg.Owner,
		identity.WithRegion(cfg.Region),
		identity.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, id: id, log: logger}, nil
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("platform-cli")
}

func (s *session) compute(ctx context.Context) (*compute.Manager, error) {
	cat, err := catalog.Load(s.cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	return compute.NewFromIdentity(ctx, s.id, cat, s.log.WithName("compute"))
}

func (s *session) storage(ctx context.Context) (*storage.Manager, error) {
	return storage.NewFromIdentity(ctx, s.id, s.log.WithName("storage"))
}

func (s *session) dns(ctx context.Context) (dns.Route53API, error) {
	return dns.NewAPI(ctx, s.id)
}
