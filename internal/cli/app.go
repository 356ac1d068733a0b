// Package cli implements taskctl, the terminal client for the task manager API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/credstore"
	"github.com/JKGhartey/task-manager-sub001/internal/guard"
	"github.com/JKGhartey/task-manager-sub001/internal/httpclient"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
	"github.com/JKGhartey/task-manager-sub001/internal/persistence"
	"github.com/JKGhartey/task-manager-sub001/internal/session"
)

// Options injects collaborators. Zero values are built from configuration.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    credstore.Store
	Doer     authclient.Doer
	Prompter Prompter
	Out      io.Writer
	Err      io.Writer
}

// app holds the per-process session and the clients commands share.
type app struct {
	opts   Options
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
	prompt Prompter
	routes guard.Table

	apiURL    string
	storeKind string
	logLevel  string

	client  *authclient.Client
	session *session.Controller
	redis   *persistence.Redis

	closeOnce sync.Once
}

func newApp(opts Options) *app {
	a := &app{
		opts:   opts,
		out:    opts.Out,
		errOut: opts.Err,
		prompt: opts.Prompter,
		routes: guard.DefaultTable(),
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	if a.prompt == nil {
		a.prompt = huhPrompter{}
	}
	return a
}

// Run executes taskctl with args and reports any failure on the error stream.
func Run(ctx context.Context, opts Options, args []string) error {
	a := newApp(opts)
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	err := root.ExecuteContext(ctx)
	if err != nil {
		renderError(a.errOut, err)
	}
	return err
}

// open builds the session for one invocation and rehydrates it.
func (a *app) open(ctx context.Context) error {
	cfg := a.opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.apiURL != "" {
		cfg.Client.BaseURL = a.apiURL
	}
	if a.storeKind != "" {
		cfg.Session.Store = a.storeKind
	}
	a.cfg = cfg

	a.logger = a.opts.Logger
	if a.logger == nil {
		logger, err := observability.NewLogger(config.LoggerConfig{Level: a.logLevel, Output: "stderr"})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		return err
	}

	doer := a.opts.Doer
	if doer == nil {
		doer = httpclient.New(httpclient.FromClientConfig("taskctl", cfg.Client), a.logger, nil)
	}
	a.client = authclient.New(cfg.Client.BaseURL, doer, a.logger)

	policy, err := session.ParseStartupPolicy(cfg.Session.StartupPolicy)
	if err != nil {
		return err
	}
	a.session = session.New(store, session.Options{
		Policy:  policy,
		Fetcher: a.client.GetCurrentUser,
		Logger:  a.logger.Named("session"),
	})
	if err := a.session.Start(ctx); err != nil {
		a.logger.Warn("session restore failed", zap.Error(err))
	}
	return nil
}

func (a *app) buildStore(ctx context.Context) (credstore.Store, error) {
	if a.opts.Store != nil {
		return a.opts.Store, nil
	}
	switch a.cfg.Session.Store {
	case config.StoreMemory:
		return credstore.NewMemoryStore(), nil
	case config.StoreRedis:
		a.redis = persistence.NewRedis(ctx, a.cfg.Redis, a.logger)
		if err := a.redis.Ping(ctx); err != nil {
			return nil, fmt.Errorf("session store unavailable: %w", err)
		}
		return credstore.NewRedisStore(a.redis.Handle(), a.cfg.Session.RedisPrefix, a.cfg.Session.RedisTTL), nil
	case config.StoreFile:
		path, err := a.cfg.Session.FilePath()
		if err != nil {
			return nil, err
		}
		return credstore.NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", a.cfg.Session.Store)
	}
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.session != nil {
			a.session.Close()
		}
		a.redis.Close()
		if a.logger != nil && a.opts.Logger == nil {
			_ = a.logger.Sync()
		}
	})
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Task manager client",
		Long:          "taskctl signs you in to the task manager and opens the views your role allows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.close()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (overrides TASKCTL_API_URL)")
	root.PersistentFlags().StringVar(&a.storeKind, "store", "", "session store: file, redis or memory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		a.loginCommand(),
		a.signupCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.forgotPasswordCommand(),
		a.resetPasswordCommand(),
		a.verifyEmailCommand(),
		a.resendVerificationCommand(),
		a.profileCommand(),
		a.passwordCommand(),
		a.openCommand(),
		a.dashboardCommand(),
	)
	return root
}

// authenticated runs fn with the session token. A rejected token ends the session.
func (a *app) authenticated(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	return loginRequired(a.session.Do(ctx, fn))
}

func loginRequired(err error) error {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return errNotLoggedIn
	}
	return err
}

var errNotLoggedIn = errors.New("not logged in; run `taskctl login` first")
