package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/wherewasi/internal/core/config"
	"github.com/colonyops/wherewasi/internal/tracker"
	"github.com/colonyops/wherewasi/pkg/iojson"
)

// ConfigCmd implements the wherewasi config command group.
type ConfigCmd struct {
	flags  *Flags
	app    *tracker.App
	format string
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags, app *tracker.App) *ConfigCmd {
	return &ConfigCmd{flags: flags, app: app}
}

// Register adds the config command to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "wherewasi config validate [--format text|json]",
				Description: "Validates the configuration file, the data directory and the database settings.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.runValidate,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) runValidate(_ context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	err := cfg.ValidateDeep(cmd.flags.ConfigPath)
	warnings := cfg.Warnings()
	out := c.Root().Writer

	if cmd.format == "json" {
		result := struct {
			Valid    bool                       `json:"valid"`
			Error    string                     `json:"error,omitempty"`
			Warnings []config.ValidationWarning `json:"warnings,omitempty"`
		}{Valid: err == nil, Warnings: warnings}
		if err != nil {
			result.Error = err.Error()
		}
		if werr := iojson.Write(out, result); werr != nil {
			return werr
		}
		if err != nil {
			return cli.Exit("", 1)
		}
		return nil
	}

	for _, w := range warnings {
		_, _ = fmt.Fprintf(out, "warning: %s.%s: %s\n", w.Category, w.Item, w.Message)
	}

	if err != nil {
		_, _ = fmt.Fprintf(out, "invalid: %v\n", err)
		return cli.Exit("", 1)
	}

	_, _ = fmt.Fprintln(out, "configuration is valid")
	return nil
}
