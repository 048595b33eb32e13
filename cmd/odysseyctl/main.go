package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/odyssey-erp/odyssey-admin/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-admin/internal/app"
)

func main() {
	ctx, stop := app.SignalContext(context.Background())
	defer stop()

	var cfg *app.Config
	config := func() (*app.Config, error) {
		if cfg != nil {
			return cfg, nil
		}
		loaded, err := app.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return cfg, nil
	}

	root := cli.NewRootCommand(cli.Env{
		Out: os.Stdout,
		Services: func(ctx context.Context) (*app.Services, error) {
			c, err := config()
			if err != nil {
				return nil, err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			return app.BuildServices(ctx, c, logger, nil)
		},
		Jobs: func() (*cli.JobsCLI, error) {
			c, err := config()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(c.QueueRedis()), nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "odysseyctl:", err)
		os.Exit(1)
	}
}
