package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/tracker"
	"github.com/colonyops/wherewasi/pkg/iojson"
)

// ItemCmd implements the wherewasi item command group.
type ItemCmd struct {
	flags *Flags
	app   *tracker.App

	// list flags
	listStatus string
	listMatch  string
	listJSON   bool

	// rm flags
	rmYes bool

	importReader iojson.FileReader[[]string]

	// isTTY reports whether stdin is interactive. Replaced in tests.
	isTTY func() bool
}

// NewItemCmd creates a new item command.
func NewItemCmd(flags *Flags, app *tracker.App) *ItemCmd {
	return &ItemCmd{
		flags: flags,
		app:   app,
		isTTY: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Register adds the item command to the application.
func (cmd *ItemCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "item",
		Aliases: []string{"i"},
		Usage:   "Manage tracked work items",
		Description: `Item commands create work items and move them through their lifecycle.

At most one item is in progress. Starting an item stops whichever item was
in progress before it.

Examples:
  wherewasi item add Review PR 42          # create a pending item
  wherewasi item start <id>                # begin working on it
  wherewasi item complete <id>             # finish it
  wherewasi item list --status pending     # what is left`,
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.importCmd(),
			cmd.listCmd(),
			cmd.showCmd(),
			cmd.transitionCmd("start", "Start working on an item", (*tracker.LifecycleService).Start),
			cmd.transitionCmd("stop", "Stop working on an item", (*tracker.LifecycleService).Stop),
			cmd.transitionCmd("complete", "Mark an item completed", (*tracker.LifecycleService).Complete),
			cmd.transitionCmd("reopen", "Return a completed item to pending", (*tracker.LifecycleService).Reopen),
			cmd.rmCmd(),
			cmd.historyCmd(),
			cmd.verifyCmd(),
		},
	})

	return app
}

func (cmd *ItemCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a pending item",
		UsageText: "wherewasi item add [title...]",
		Description: `Creates a pending item. The remaining arguments are joined into the title.

With no arguments on an interactive terminal a prompt asks for the title.`,
		Action: cmd.runAdd,
	}
}

func (cmd *ItemCmd) importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create items from a JSON array of titles",
		UsageText: "wherewasi item import [-f titles.json]",
		Description: `Reads a JSON array of titles and creates one pending item per title.
Created items are written as JSON lines.

Examples:
  wherewasi item import -f titles.json
  echo '["write docs","fix tests"]' | wherewasi item import`,
		Flags:  []cli.Flag{cmd.importReader.Flag()},
		Action: cmd.runImport,
	}
}

func (cmd *ItemCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List items",
		UsageText: "wherewasi item list [--status <status>] [--match <glob>] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "filter by status (pending, in_progress, completed)",
				Destination: &cmd.listStatus,
			},
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "filter titles by glob, case-insensitive (e.g. '*review*')",
				Destination: &cmd.listMatch,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.listJSON,
			},
		},
		Action: cmd.runList,
	}
}

func (cmd *ItemCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:          "show",
		Usage:         "Show an item and its history",
		UsageText:     "wherewasi item show <id>",
		ShellComplete: ItemIDCompleter(cmd.app),
		Action:        cmd.runShow,
	}
}

func (cmd *ItemCmd) transitionCmd(
	name, usage string,
	op func(s *tracker.LifecycleService, ctx context.Context, id string) (todo.Item, error),
) *cli.Command {
	return &cli.Command{
		Name:          name,
		Usage:         usage,
		UsageText:     fmt.Sprintf("wherewasi item %s <id>", name),
		ShellComplete: ItemIDCompleter(cmd.app),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}

			item, err := op(cmd.app.Lifecycle, ctx, id)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\n", item.ID, item.Status, item.Title)
			return nil
		},
	}
}

func (cmd *ItemCmd) rmCmd() *cli.Command {
	return &cli.Command{
		Name:        "rm",
		Aliases:     []string{"delete"},
		Usage:       "Delete an item",
		UsageText:   "wherewasi item rm <id> [--yes]",
		Description: "Deletes the item. Its history is kept and shows up in the timeline as \"Unknown\".",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.rmYes,
			},
		},
		ShellComplete: ItemIDCompleter(cmd.app),
		Action:        cmd.runRm,
	}
}

func (cmd *ItemCmd) historyCmd() *cli.Command {
	return &cli.Command{
		Name:          "history",
		Usage:         "Print an item's events as JSON lines",
		UsageText:     "wherewasi item history <id>",
		Description:   "Works for deleted items too, since history outlives the item.",
		ShellComplete: ItemIDCompleter(cmd.app),
		Action:        cmd.runHistory,
	}
}

func (cmd *ItemCmd) verifyCmd() *cli.Command {
	return &cli.Command{
		Name:        "verify",
		Usage:       "Check that item statuses match their history",
		UsageText:   "wherewasi item verify",
		Description: "Prints one JSON line per item whose status differs from its latest event and exits non-zero if any are found.",
		Action:      cmd.runVerify,
	}
}

func (cmd *ItemCmd) runAdd(ctx context.Context, c *cli.Command) error {
	title := strings.Join(c.Args().Slice(), " ")

	if strings.TrimSpace(title) == "" {
		if !cmd.isTTY() {
			return fmt.Errorf("title is required")
		}
		if err := cmd.promptTitle(&title); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	item, err := cmd.app.Lifecycle.Create(ctx, title)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, item.ID)
	return nil
}

func (cmd *ItemCmd) promptTitle(title *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("What are you working on?").
				Validate(validateTitle).
				Value(title),
		),
	).Run()
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

func (cmd *ItemCmd) runImport(ctx context.Context, c *cli.Command) error {
	titles, err := cmd.importReader.Read()
	if err != nil {
		return fmt.Errorf("read titles: %w", err)
	}

	for _, title := range titles {
		if validateTitle(title) != nil {
			log.Warn().Msg("skipping blank title")
			continue
		}

		item, err := cmd.app.Lifecycle.Create(ctx, title)
		if err != nil {
			return fmt.Errorf("create item %q: %w", title, err)
		}

		if err := iojson.WriteLine(c.Root().Writer, item); err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
	}

	return nil
}

func (cmd *ItemCmd) runList(ctx context.Context, c *cli.Command) error {
	filter := todo.ListFilter{
		Status: todo.Status(cmd.listStatus),
		Match:  cmd.listMatch,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return fmt.Errorf("invalid status %q (valid: pending, in_progress, completed)", cmd.listStatus)
	}

	items, err := cmd.app.Lifecycle.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	out := c.Root().Writer

	if cmd.listJSON {
		for _, item := range items {
			if err := iojson.WriteLine(out, item); err != nil {
				return fmt.Errorf("encode item: %w", err)
			}
		}
		return nil
	}

	if len(items) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tUPDATED")
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.ID, item.Status, item.Title, item.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

// itemDetail is the output of wherewasi item show.
type itemDetail struct {
	todo.Item
	History []history.Event `json:"history"`
}

func (cmd *ItemCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	item, err := cmd.app.Lifecycle.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}

	events, err := cmd.app.Lifecycle.History(ctx, id)
	if err != nil {
		return err
	}

	return iojson.Write(c.Root().Writer, itemDetail{Item: item, History: events})
}

func (cmd *ItemCmd) runRm(ctx context.Context, c *cli.Command) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	if !cmd.rmYes {
		if !cmd.isTTY() {
			return fmt.Errorf("refusing to delete %s without --yes", id)
		}

		item, err := cmd.app.Lifecycle.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}

		confirmed := false
		err = huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q?", item.Title)).
			Description("The item's history is kept.").
			Value(&confirmed).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.app.Lifecycle.Delete(ctx, id); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "deleted %s\n", id)
	return nil
}

func (cmd *ItemCmd) runHistory(ctx context.Context, c *cli.Command) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	events, err := cmd.app.Lifecycle.History(ctx, id)
	if err != nil {
		return err
	}

	for _, e := range events {
		if err := iojson.WriteLine(c.Root().Writer, e); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
	}
	return nil
}

func (cmd *ItemCmd) runVerify(ctx context.Context, c *cli.Command) error {
	drift, err := cmd.app.Lifecycle.Verify(ctx)
	if err != nil {
		return err
	}

	for _, d := range drift {
		if err := iojson.WriteLine(c.Root().Writer, d); err != nil {
			return fmt.Errorf("encode drift: %w", err)
		}
	}

	if len(drift) > 0 {
		return cli.Exit(fmt.Sprintf("%d item(s) out of sync with history", len(drift)), 1)
	}
	return nil
}

func requireID(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one item id")
	}
	return c.Args().First(), nil
}

// writeItems prints items one per line. Used by completion.
func writeItems(w io.Writer, items []todo.Item) {
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s:%s\n", item.ID, item.Title)
	}
}
