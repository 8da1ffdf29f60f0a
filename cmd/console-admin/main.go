package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serm-lab/admin-console/config"
	"github.com/serm-lab/admin-console/internal/bootstrap"
	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// sessionClient is what the session commands drive; satisfied by *service.SessionStore.
type sessionClient interface {
	State() domainauth.Session
	Phase() domainauth.Phase
	Snapshot() (domainauth.Phase, domainauth.Session)
	Load(ctx context.Context) error
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.User, error)
	Logout(ctx context.Context)
	StartResetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password string) (domainauth.User, error)
	Register(ctx context.Context, creds domainauth.Credentials) error
	Activate(ctx context.Context, code string) (domainauth.User, error)
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
	// Session builds the session client on first use; commands that never
	// talk to the backend leave it untouched.
	Session func() (sessionClient, func(), error)
}

const defaultCommandTimeout = 30 * time.Second

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger = bootstrap.ConfigureLogger(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{
		Ctx:     ctx,
		Logger:  logger,
		Config:  cfg,
		Out:     os.Stdout,
		In:      os.Stdin,
		Session: func() (sessionClient, func(), error) { return connectSession(logger, &cfg) },
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Log in with email and password and persist the credential",
			run:         runLogin,
		},
		"whoami": {
			name:        "whoami",
			description: "Restore the persisted session and print the current user",
			run:         runWhoami,
		},
		"logout": {
			name:        "logout",
			description: "End the session and clear the persisted credential",
			run:         runLogout,
		},
		"start-reset-password": {
			name:        "start-reset-password",
			description: "Ask the backend to mail a password reset code",
			run:         runStartResetPassword,
		},
		"reset-password": {
			name:        "reset-password",
			description: "Set a new password with a mailed reset code",
			run:         runResetPassword,
		},
		"register": {
			name:        "register",
			description: "Create an account awaiting activation",
			run:         runRegister,
		},
		"activate": {
			name:        "activate",
			description: "Activate an account with a mailed code",
			run:         runActivate,
		},
		"pages": {
			name:        "pages",
			description: "Print the pagination window for a table",
			run:         runPages,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: console-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-24s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// connectSession wires the same session store the console server uses.
func connectSession(logger *slog.Logger, cfg *config.AppConfig) (sessionClient, func(), error) {
	var redisClient redis.UniversalClient
	if cfg.UsesRedis() {
		client, err := bootstrap.ConnectRedis(bootstrap.RedisConnConfig{Redis: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if cerr := services.Observability.Close(); cerr != nil {
			logger.Error("close metrics sink failed", "error", cerr)
		}
		if redisClient != nil {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("close redis failed", "error", cerr)
			}
		}
	}
	return services.Session, cleanup, nil
}

// withSession runs f with a connected session client and a bounded context.
func withSession(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, sessionClient) error) error {
	if cmdCtx.Session == nil {
		return errors.New("session client not configured")
	}
	client, cleanup, err := cmdCtx.Session()
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, timeout)
	defer cancel()
	return f(ctx, client)
}
