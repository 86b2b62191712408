package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/draftguard/internal/adapters/draftapi"
	"github.com/bnema/draftguard/internal/adapters/navigate"
	dashboardadapter "github.com/bnema/draftguard/internal/adapters/render/dashboard"
	chainstore "github.com/bnema/draftguard/internal/adapters/secrets/chain"
	tomlstore "github.com/bnema/draftguard/internal/adapters/store/toml"
	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/config"
	"github.com/bnema/draftguard/internal/logging"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errAPINotConfigured = errors.New("draft controller url is not configured (set api.base_url or DG_API_BASE_URL)")

type app struct {
	cfg               config.Config
	logger            *zap.Logger
	state             ports.StateStore
	secretStore       ports.SecretStore
	dashboardRenderer func(application.DashboardState, dashboardadapter.RenderOptions) (string, error)
	httpClient        *http.Client
	now               func() time.Time
}

func wireApp(logOutput io.Writer) (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOutput)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	state, err := tomlstore.NewStore(v)
	if err != nil {
		return nil, fmt.Errorf("wire state store: %w", err)
	}

	secretsDir, err := cfg.SecretsDir()
	if err != nil {
		return nil, err
	}
	secretStore, err := chainstore.NewPassFirstWithFileFallback(secretsDir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		cfg:               cfg,
		logger:            logger,
		state:             state,
		secretStore:       secretStore,
		dashboardRenderer: dashboardadapter.Render,
		httpClient:        http.DefaultClient,
		now:               time.Now,
	}, nil
}

func (a *app) draftService() (*draftapi.Client, error) {
	if a.cfg.API.BaseURL == "" {
		return nil, errAPINotConfigured
	}

	return draftapi.New(draftapi.Options{
		BaseURL:        a.cfg.API.BaseURL,
		HTTPClient:     a.httpClient,
		RequestTimeout: a.cfg.API.Timeout,
		Secrets:        a.secretStore,
		Logger:         a.logger.Named("draftapi"),
	}), nil
}

func (a *app) navigator(out io.Writer, open bool) ports.Navigator {
	if a.cfg.API.InstanceURL == "" {
		return nil
	}
	return navigate.New(a.cfg.API.InstanceURL, out, open)
}
