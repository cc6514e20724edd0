package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/core/service"
)

type tokenRow struct {
	Token string `json:"token" yaml:"token"`
	Kind  string `json:"kind" yaml:"kind"`
}

// TokenCommand mints tokens the way the tables do.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Create tokens",
		Description: "A prefix equal to the session prefix (" + domain.SessionPrefix + ") yields\n" +
			"session tokens; any other prefix yields transition tokens.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "Token prefix",
			},
			&cli.StringFlag{
				Name:    "generator",
				Aliases: []string{"g"},
				Usage:   "Random part: hex, uuid or ulid (default: tables.generator)",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tokens",
				Value:   1,
			},
		},
		Action: tokenCreate,
	}
}

func tokenCreate(c *cli.Context) error {
	n := c.Int("count")
	if n < 1 {
		return errors.New("count must be at least 1")
	}

	generator := c.String("generator")
	if generator == "" {
		cfg, _, _, err := loadConfig(c)
		if err != nil {
			return err
		}
		generator = cfg.Tables.Generator
	}
	if !validGenerator(generator) {
		return fmt.Errorf("unknown generator %q", generator)
	}

	tables := service.New(nil, nil, service.WithTokenCreator(domain.TokenCreatorByName(generator)))

	rows := make([]tokenRow, 0, n)
	for range n {
		tok := tables.CreateToken(c.String("prefix"))
		rows = append(rows, tokenRow{Token: tok.String(), Kind: tok.Kind.String()})
	}
	return render(c, rows)
}

func validGenerator(name string) bool {
	switch strings.ToLower(name) {
	case "hex", "uuid", "ulid":
		return true
	}
	return false
}
