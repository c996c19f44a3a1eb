package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/tracker"
)

// ItemIDCompleter returns a ShellCompleteFunc that suggests item ids, with
// their titles as descriptions, as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ItemIDCompleter(app *tracker.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app.Lifecycle == nil {
			return
		}

		items, err := app.Lifecycle.List(ctx, todo.ListFilter{})
		if err != nil {
			return
		}

		writeItems(cmd.Root().Writer, items)
	}
}
