package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokentables/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, _, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	return render(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	cfg, loader, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	source := loader.FilePath()
	if source == "" {
		source = "defaults and environment"
	}
	_, err = fmt.Fprintf(writer(c), "configuration OK (%s, storage engine %s)\n", source, cfg.Storage.Engine)
	return err
}
