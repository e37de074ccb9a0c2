package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/credential"
	"github.com/nhle/berrydesk/internal/i18n"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/store"
	appsync "github.com/nhle/berrydesk/internal/sync"
)

// snapshotRetention is how long a cached listing survives without being
// refreshed.
const snapshotRetention = 30 * 24 * time.Hour

// Services is everything the TUI and the CLI commands share.
type Services struct {
	Config     model.AppConfig
	ConfigPath string
	Logger     *logrus.Logger
	Client     *api.Client
	Catalog    *i18n.Catalog
	Snapshots  *store.SQLiteStore

	Auth     *state.AuthStore
	Projects *state.ProjectStore
	Invoices *state.InvoiceStore
	Todos    *state.TodoStore
	UI       *state.UIStore

	Refresher *appsync.Refresher

	logFile io.Closer
}

// KeyringOpener returns the keyring session cookies are remembered in.
type KeyringOpener func() (keyring.Keyring, error)

// SystemKeyring opens the OS keyring with a file fallback under the config
// directory.
func SystemKeyring() (keyring.Keyring, error) {
	return credential.OpenKeyring(model.ConfigDir())
}

// NewServices builds the stores for cfg. A missing keyring or cache only
// disables remembering sessions or snapshots; the app still runs.
func NewServices(cfg *model.AppConfig, cfgPath string) (*Services, error) {
	return NewServicesWithKeyring(cfg, cfgPath, SystemKeyring)
}

// NewServicesWithKeyring is NewServices with a custom keyring.
func NewServicesWithKeyring(cfg *model.AppConfig, cfgPath string, openRing KeyringOpener) (*Services, error) {
	logger, logFile := newLogger(cfg.Log)

	client, err := api.NewClient(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           time.Duration(cfg.API.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logger,
	})
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	catalog, err := i18n.New(cfg.Display.Language, logger)
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("loading messages: %w", err)
	}

	s := &Services{
		Config:     *cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Client:     client,
		Catalog:    catalog,
		UI:         state.NewUIStore(),
		logFile:    logFile,
	}

	// The stores take the interface; a nil *SQLiteStore must not leak into
	// it as a non-nil interface value.
	var snapshots store.Store
	if cfg.Cache.Enabled {
		db, err := store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			logger.WithError(err).Warn("snapshot cache disabled")
		} else {
			s.Snapshots = db
			snapshots = db
			if n, err := db.PruneSnapshots(context.Background(), time.Now().Add(-snapshotRetention)); err != nil {
				logger.WithError(err).Warn("pruning snapshots")
			} else if n > 0 {
				logger.WithField("removed", n).Debug("pruned snapshots")
			}
		}
	}

	authOpts := state.AuthOptions{Snapshots: snapshots, Logger: logger}
	if ring, err := openRing(); err != nil {
		logger.WithError(err).Warn("keyring unavailable, sessions will not be remembered")
	} else {
		authOpts.Vault = credential.NewVault(ring)
	}

	s.Auth = state.NewAuthStore(client, catalog, authOpts)

	deps := state.Deps{
		Client:    client,
		Session:   s.Auth,
		Messages:  catalog,
		Logger:    logger,
		Snapshots: snapshots,
	}
	s.Projects = state.NewProjectStore(deps)
	s.Invoices = state.NewInvoiceStore(deps)
	s.Todos = state.NewTodoStore(deps)

	s.Refresher = appsync.New(time.Duration(cfg.Display.RefreshIntervalSec)*time.Second, logger)
	s.Refresher.Register(appsync.JobSession, s.Auth.CheckAuthStatus)
	s.Refresher.Register(appsync.JobTodoStats, func(ctx context.Context) error {
		if !s.Auth.IsLoggedIn() {
			return nil
		}
		s.Todos.FetchStats(ctx)
		return nil
	})

	return s, nil
}

// newLogger opens the log file from cfg. When the file cannot be opened
// logs are discarded; the TUI owns the terminal.
func newLogger(cfg model.LogConfig) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File == "" {
		logger.SetOutput(io.Discard)
		return logger, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		logger.SetOutput(io.Discard)
		return logger, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger, nil
	}
	logger.SetOutput(f)
	return logger, f
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// Close stops the refresher and releases the cache and the log file.
func (s *Services) Close() {
	s.Refresher.Stop()
	if s.Snapshots != nil {
		if err := s.Snapshots.Close(); err != nil {
			s.Logger.WithError(err).Warn("closing snapshot cache")
		}
	}
	closeQuietly(s.logFile)
}
