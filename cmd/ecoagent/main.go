package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/ecoagent/backend-go/internal/app"
	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/andresuchdata/ecoagent/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

const appKey = "app"

func initApp(c *cli.Context) error {
	cfg := config.Load()
	// Keep stdout clean for JSON output
	logger.Configure(os.Stderr, cfg.Log.Format, c.String("log-level"))

	a, err := app.New(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	c.App.Metadata[appKey] = a
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.App.Metadata[appKey].(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.App.Metadata[appKey].(*app.App)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	application := &cli.App{
		Name:     "ecoagent",
		Usage:    "Score waste risk and supplier sustainability from the dataset store",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before:   initApp,
		After:    closeApp,
		Commands: commands(),
	}

	if err := application.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
