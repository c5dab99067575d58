package serve

import (
	"net/http"
	"time"

	miniauth "github.com/dirhub/miniauth"
	"github.com/dirhub/miniauth/httpapi"
	"github.com/dirhub/miniauth/internal/httpserver"
	"github.com/dirhub/miniauth/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7080"
	var (
		platformSecret string
		tokenSecret    string
		permissive     bool
		maxAge         time.Duration
		tokenTTL       time.Duration
		redisAddr      string
		replay         bool
		throttle       bool
		throttleMax    int
	)
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the session issuing endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the HTTP endpoints",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			&cli.StringFlag{
				Name:        "platform-secret",
				Usage:       "Shared secret issued by the host platform",
				EnvVars:     []string{"MINIAUTH_PLATFORM_SECRET"},
				Destination: &platformSecret,
			},
			&cli.StringFlag{
				Name:        "token-secret",
				Usage:       "Secret used to sign session tokens",
				EnvVars:     []string{"MINIAUTH_TOKEN_SECRET"},
				Destination: &tokenSecret,
			},
			&cli.BoolFlag{
				Name:        "permissive",
				Usage:       "Skip payload verification (local development only)",
				EnvVars:     []string{"MINIAUTH_PERMISSIVE"},
				Destination: &permissive,
			},
			&cli.DurationFlag{
				Name:        "max-age",
				Usage:       "Oldest acceptable payload age (0 uses the default)",
				Destination: &maxAge,
			},
			&cli.DurationFlag{
				Name:        "token-ttl",
				Usage:       "Session token lifetime (0 uses the default)",
				Destination: &tokenTTL,
			},
			&cli.StringFlag{
				Name:        "redis-addr",
				Usage:       "Redis address for replay detection and throttling",
				EnvVars:     []string{"MINIAUTH_REDIS_ADDR"},
				Destination: &redisAddr,
			},
			&cli.BoolFlag{
				Name:        "replay-guard",
				Usage:       "Reject previously seen payloads (requires redis-addr)",
				Destination: &replay,
			},
			&cli.BoolFlag{
				Name:        "throttle",
				Usage:       "Throttle issuance and refresh per client IP (requires redis-addr)",
				Destination: &throttle,
			},
			&cli.IntFlag{
				Name:        "throttle-max",
				Usage:       "Attempts allowed per client IP per window (0 uses the default)",
				Destination: &throttleMax,
			},
		},
		Action: func(ctx *cli.Context) error {
			var cfg miniauth.Config
			cfg.InitData.Secret = []byte(platformSecret)
			cfg.InitData.MaxAge = maxAge
			cfg.InitData.Permissive = permissive
			cfg.Token.Secret = []byte(tokenSecret)
			cfg.Token.TTL = tokenTTL
			cfg.Replay.Enabled = replay
			cfg.Throttle.Enabled = throttle
			cfg.Throttle.MaxAttempts = throttleMax
			cfg.Metrics.Enabled = true

			builder := miniauth.New().WithConfig(cfg)
			if redisAddr != "" {
				client := redis.NewClient(&redis.Options{Addr: redisAddr})
				defer func() { _ = client.Close() }()
				builder = builder.WithRedis(client)
			}
			engine, err := builder.Build()
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", prometheus.NewPrometheusExporter(engine).Handler())
			mux.Handle("/", httpapi.Handler(ctx.Context, engine))
			return httpserver.Serve(ctx.Context, bindAddr, mux)
		},
	}
}
