// Command emailworker delivers one batch of email jobs and exits.
//
// It is the detached half of the dispatch pipeline: a request process
// serializes its pending jobs to a temp file and spawns this binary with the
// file path as the only argument. The worker owns the file from that moment
// on and removes it after consuming the jobs.
//
// Per-job failures are logged and never abort the batch; the exit code is
// non-zero only when the input itself is unusable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/greenmiles/backend/pkg/config"
	"github.com/greenmiles/backend/pkg/dispatch"
	"github.com/greenmiles/backend/pkg/email"
	"github.com/greenmiles/backend/pkg/logger"
	"github.com/greenmiles/backend/pkg/pg"
	"github.com/greenmiles/backend/pkg/prefs"
	"github.com/greenmiles/backend/pkg/redis"
)

// workerConfig selects the optional backing services. Without a database the
// worker still delivers; it just cannot consult recipient preferences.
type workerConfig struct {
	PostgresURL string     `env:"PG_CONN_URL"`
	RedisURL    string     `env:"REDIS_URL"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var cfg workerConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "emailworker: invalid configuration:", err)
		return 1
	}

	log := logger.New(
		logger.WithService("emailworker"),
		logger.WithLevel(cfg.LogLevel),
	)
	logger.SetAsDefault(log)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: emailworker <job-file>")
		return 2
	}
	path := os.Args[1]

	ctx := context.Background()

	gateway, err := buildGateway(ctx, cfg, log)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "failed to build email gateway", logger.Error(err))
		return 1
	}

	jobs, err := dispatch.ReadJobFile(path)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "failed to read job file",
			slog.String("path", path),
			logger.Error(err),
		)
		return 1
	}

	for _, job := range jobs {
		if err := gateway.Send(ctx, job); err != nil {
			log.LogAttrs(ctx, slog.LevelError, "email job failed",
				logger.JobType(job.Type),
				logger.Error(err),
			)
		}
	}

	if err := os.Remove(path); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "failed to remove job file",
			slog.String("path", path),
			logger.Error(err),
		)
	}

	log.LogAttrs(ctx, slog.LevelInfo, "batch delivered", logger.JobCount(len(jobs)))
	return 0
}

// buildGateway assembles the delivery stack: Postmark when tokens are
// configured (file-based dev sender otherwise), plus preference suppression
// when a database is reachable.
func buildGateway(ctx context.Context, cfg workerConfig, log *slog.Logger) (*email.Gateway, error) {
	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil {
		return nil, err
	}

	var sender email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		var err error
		sender, err = email.NewPostmarkClient(emailCfg)
		if err != nil {
			return nil, err
		}
	} else {
		sender = email.NewDevSender(emailCfg.DevOutputDir)
		log.LogAttrs(ctx, slog.LevelInfo, "no postmark token, writing emails to disk",
			slog.String("dir", emailCfg.DevOutputDir),
		)
	}

	opts := []email.GatewayOption{email.WithGatewayLogger(log)}

	if cfg.PostgresURL != "" {
		prefsSvc, err := buildPreferenceService(ctx, cfg, log)
		if err != nil {
			// Preferences fail open everywhere else in the pipeline; an
			// unreachable database should not block delivery either.
			log.LogAttrs(ctx, slog.LevelWarn, "preference service unavailable, delivering without suppression",
				logger.Error(err),
			)
		} else {
			opts = append(opts, email.WithPreferenceGateway(prefsSvc))
		}
	}

	return email.NewGateway(sender, opts...), nil
}

// buildPreferenceService wires preference reads for the worker: account
// lookup always goes through Postgres, mask reads prefer Redis when
// configured.
func buildPreferenceService(ctx context.Context, cfg workerConfig, log *slog.Logger) (*prefs.Service, error) {
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}

	var storage prefs.Storage = prefs.NewPgStorage(pool)
	if cfg.RedisURL != "" {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		storage = prefs.NewRedisStorage(client)
	}

	return prefs.NewService(storage,
		prefs.WithServiceLogger(log),
		prefs.WithEmailLookup(prefs.PgEmailLookup(pool)),
	), nil
}
