package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/auth"
	"github.com/joacominatel/dbdash/internal/config"
	"github.com/joacominatel/dbdash/internal/database"
	_ "github.com/joacominatel/dbdash/internal/database/postgres"
	_ "github.com/joacominatel/dbdash/internal/database/sqlite"
	"github.com/joacominatel/dbdash/internal/logging"
	"github.com/joacominatel/dbdash/internal/server"
	"github.com/joacominatel/dbdash/internal/tui"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL URL or SQLite file path")
	driver := flag.String("driver", "", "backend: sqlite or postgres (detected from --dsn when empty)")
	cfgPath := flag.String("config", "", "config file (default ~/.dbdash/config.yaml)")
	serve := flag.Bool("serve", false, "start the HTTP API at launch")
	serveOnly := flag.Bool("serve-only", false, "run the HTTP API without the dashboard")
	addr := flag.String("addr", "", "HTTP API listen address (overrides server.addr)")
	addUser := flag.String("add-user", "", "create a user with this email (password read from stdin) and exit")
	role := flag.String("role", auth.RoleViewer, "role for --add-user: admin or viewer")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = &config.Config{}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	headless := *serveOnly || *addUser != ""
	closer, err := logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: headless,
	})
	if err != nil {
		// Setup already silenced the logger; this line prints before the TUI starts.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else {
		defer closer.Close()
	}

	if cfg.Preferences.Theme != "" && !theme.Apply(cfg.Preferences.Theme) {
		log.Warn().Str("theme", cfg.Preferences.Theme).Msg("unknown theme, using default")
	}

	backend, connDSN := database.Backend(*driver), *dsn
	if connDSN == "" && headless {
		if def := config.DefaultConnection(cfg); def != nil {
			backend, connDSN = def.Backend(), def.DSN()
		}
	}

	service := app.NewService(cfg.PoolOptions())

	if *addUser != "" {
		if err := runAddUser(service, backend, connDSN, *addUser, *role); err != nil {
			log.Error().Err(err).Msg("add user")
			os.Exit(1)
		}
		return
	}

	api, redisClient, err := buildServer(cfg, service)
	if err != nil {
		log.Error().Err(err).Msg("api unavailable")
		if *serveOnly {
			os.Exit(1)
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if *serveOnly {
		if err := runHeadless(service, api, backend, connDSN); err != nil {
			log.Error().Err(err).Msg("dbdash stopped")
			os.Exit(1)
		}
		return
	}

	if *serve && api != nil {
		if err := api.Start(); err != nil {
			log.Error().Err(err).Msg("start api")
		}
	}

	model := tui.NewModel(service, cfg, api, backend, connDSN)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, runErr := p.Run()
	tui.Shutdown(service, api)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", runErr)
		os.Exit(1)
	}
}

// buildServer wires tokens, revocation and the HTTP API. The returned Redis
// handle must be closed on exit.
func buildServer(cfg *config.Config, service *app.Service) (*server.Server, *auth.Redis, error) {
	secret, err := config.AuthSecret(cfg)
	if errors.Is(err, config.ErrSecretNotPersisted) {
		log.Warn().Err(err).Msg("auth secret is valid for this run only")
	} else if err != nil {
		return nil, nil, err
	}
	tokens := auth.NewTokens(secret, cfg.Auth.SessionTTL, cfg.Auth.TransferTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := auth.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	if rdb.Embedded() {
		log.Info().Msg("token revocation uses an in-process redis")
	}

	api := server.New(server.Options{
		Addr:         cfg.Server.Addr,
		StorageDir:   cfg.Server.StorageDir,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, service, tokens, auth.NewRedisRevoker(rdb.Client))
	return api, rdb, nil
}

// runHeadless connects, serves the API and blocks until SIGINT or SIGTERM.
func runHeadless(service *app.Service, api *server.Server, backend database.Backend, dsn string) error {
	if dsn == "" {
		return errors.New("--serve-only needs --dsn or a default connection")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := service.Connect(connectCtx, backend, dsn); err != nil {
		return err
	}
	if err := api.Prepare(connectCtx); err != nil {
		return err
	}
	if err := api.Start(); err != nil {
		return err
	}
	log.Info().Str("addr", api.Addr()).Str("database", service.DatabaseName()).Msg("dbdash api ready")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	tui.Shutdown(service, api)
	return nil
}

func runAddUser(service *app.Service, backend database.Backend, dsn, email, role string) error {
	if dsn == "" {
		return errors.New("--add-user needs --dsn or a default connection")
	}
	if role != auth.RoleAdmin && role != auth.RoleViewer {
		return fmt.Errorf("unknown role %q", role)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.Connect(ctx, backend, dsn); err != nil {
		return err
	}
	defer service.Disconnect()

	conn, err := service.Conn()
	if err != nil {
		return err
	}
	store := auth.NewStore(conn)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	user, err := store.Create(ctx, email, password, role)
	if err != nil {
		return err
	}
	log.Info().Int64("user_id", user.ID).Str("email", user.Email).Str("role", user.Role).Msg("user created")
	return nil
}
