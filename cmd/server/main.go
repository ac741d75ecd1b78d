// Command server runs the notification backend: the message inbox and
// preference API, with the dispatch middleware giving every request its own
// email pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenmiles/backend/modules/notifications"
	"github.com/greenmiles/backend/pkg/config"
	"github.com/greenmiles/backend/pkg/dispatch"
	"github.com/greenmiles/backend/pkg/email"
	"github.com/greenmiles/backend/pkg/httpserver"
	"github.com/greenmiles/backend/pkg/logger"
	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/pg"
	"github.com/greenmiles/backend/pkg/prefs"
)

type serverConfig struct {
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Dev      bool       `env:"DEV_MODE" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg serverConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithService("server"),
		logger.WithLevel(cfg.LogLevel),
	}
	if cfg.Dev {
		logOpts = append(logOpts, logger.WithDevelopment())
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx := context.Background()

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil {
		return err
	}
	var dispatchCfg dispatch.Config
	if err := config.Load(&dispatchCfg); err != nil {
		return err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	store := messages.NewStore(messages.NewPgStorage(pool), messages.WithStoreLogger(log))
	prefsSvc := prefs.NewService(prefs.NewPgStorage(pool),
		prefs.WithServiceLogger(log),
		prefs.WithEmailLookup(prefs.PgEmailLookup(pool)),
	)

	// The in-process gateway backs the inline and synchronous-fallback
	// paths. The spawned path re-builds its own inside cmd/emailworker.
	sender := buildSender(ctx, emailCfg, log)
	gateway := email.NewGateway(sender,
		email.WithGatewayLogger(log),
		email.WithPreferenceGateway(prefsSvc),
	)

	newDispatcher := func() *dispatch.Dispatcher {
		return dispatch.NewDispatcher(store, prefsSvc, gateway,
			dispatch.WithLogger(log),
			dispatch.WithResolver(userResolver(pool)),
			dispatch.WithConfig(dispatchCfg),
		)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(dispatch.Middleware(newDispatcher))

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, pool.Ping))

	r.Mount("/notifications", notifications.NewService(store, prefsSvc, headerUserID,
		notifications.WithLogger(log)).Handle())

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// buildSender picks Postmark when a token is configured and the file-based
// dev sender otherwise.
func buildSender(ctx context.Context, cfg email.Config, log *slog.Logger) email.EmailSender {
	if cfg.PostmarkServerToken != "" {
		sender, err := email.NewPostmarkClient(cfg)
		if err == nil {
			return sender
		}
		log.LogAttrs(ctx, slog.LevelError, "postmark misconfigured, falling back to dev sender",
			logger.Error(err),
		)
	}
	return email.NewDevSender(cfg.DevOutputDir)
}

// userResolver reads recipient identity from the users table.
func userResolver(pool *pgxpool.Pool) dispatch.UserResolver {
	return func(ctx context.Context, userID int64) (*dispatch.UserInfo, error) {
		var info dispatch.UserInfo
		err := pool.QueryRow(ctx,
			`SELECT COALESCE(email, ''), COALESCE(name, '') FROM users WHERE id = $1`, userID).
			Scan(&info.Email, &info.Name)
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if info.Email == "" {
			return nil, nil
		}
		return &info, nil
	}
}

// headerUserID trusts the authenticating proxy's X-User-ID header. The
// platform terminates sessions upstream; this service never sees raw
// credentials.
func headerUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
}
