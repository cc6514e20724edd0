package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokentables/internal/cli/output"
	"github.com/yndnr/tokentables/internal/config"
	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/infra/buildinfo"
	"github.com/yndnr/tokentables/internal/infra/confloader"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tokentables",
		Usage:   "In-memory session and transition token tables",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			TokenCommand(),
			ConfigCommand(),
			StoreCommand(),
			VersionCommand(),
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// ExitCode maps an error returned by App().Run to a process exit status:
// 2 for invalid arguments, 3 for internal and storage failures, 1 otherwise.
func ExitCode(err error) int {
	var de *domain.DomainError
	if errors.As(err, &de) {
		switch de.Code.Category() {
		case "ARG":
			return 2
		case "SYS":
			return 3
		}
	}
	return 1
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"TOKTABLES_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "storage-engine",
			Usage: "Override storage.engine (memory, badger, redis)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// newLoader builds a loader from the global flags. Flag overrides win
// over the file and the environment.
func newLoader(c *cli.Context) *confloader.Loader {
	overrides := map[string]any{}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}
	if v := c.String("storage-engine"); v != "" {
		overrides["storage.engine"] = v
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	return confloader.NewLoader(opts...)
}

// loadConfig loads and verifies the configuration and installs the
// default logger from it.
func loadConfig(c *cli.Context) (*config.Config, *confloader.Loader, logger.Logger, error) {
	loader := newLoader(c)
	cfg, err := config.Load(loader)
	if err != nil {
		return nil, nil, nil, err
	}

	lc := cfg.Logger()
	lc.Output = c.App.ErrWriter
	log, err := logger.New(lc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	return cfg, loader, log, nil
}

// render writes data in the format selected by the global flags.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}
