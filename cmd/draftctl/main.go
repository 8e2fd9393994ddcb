package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/client"
	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/pkg/types"
)

const usage = `usage: draftctl [flags] <command> [args]

commands:
  create [name]          start a draft as the blue player
  join <id> [name]       take the red side of a draft
  ready <id> [true|false]
  select <id> <champion> ban or pick on your turn
  show <id>
  watch <id>             print the draft every time it changes
  champions              list the champion catalog
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "draftctl:", err)
		os.Exit(1)
	}
}

func defaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".draftctl-identity"
	}
	return filepath.Join(dir, "draftctl", "identity")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("draftctl", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "draft server base URL")
	identity := fs.String("identity", defaultIdentityPath(), "file holding this player's token")
	player := fs.String("player", "", "player token (overrides -identity)")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage); fs.PrintDefaults() }
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	id := *player
	if id == "" {
		var err error
		if id, err = client.LoadOrCreateIdentity(*identity); err != nil {
			return err
		}
	}
	c := client.New(*server, id, nil)

	cmd, rest := rest[0], rest[1:]
	arg := func(i int) string {
		if i < len(rest) {
			return rest[i]
		}
		return ""
	}
	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s: expected %d argument(s)", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "create":
		d, err := c.Create(ctx, arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "draft %s created, share this code with your opponent\n", d.ID)
		printDraft(out, d)

	case "join":
		if err := need(1); err != nil {
			return err
		}
		d, msg, err := c.Join(ctx, arg(0), arg(1))
		if err != nil {
			return err
		}
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
		printDraft(out, d)

	case "ready":
		if err := need(1); err != nil {
			return err
		}
		ready := arg(1) != "false"
		d, err := c.SetReady(ctx, arg(0), ready)
		if err != nil {
			return err
		}
		printDraft(out, d)

	case "select":
		if err := need(2); err != nil {
			return err
		}
		d, err := c.Select(ctx, arg(0), arg(1))
		if err != nil {
			return err
		}
		printDraft(out, d)

	case "show":
		if err := need(1); err != nil {
			return err
		}
		d, err := c.Get(ctx, arg(0))
		if err != nil {
			return err
		}
		printDraft(out, d)

	case "watch":
		if err := need(1); err != nil {
			return err
		}
		logger, _ := zap.NewDevelopment()
		w := &client.Watcher{Client: c, DraftID: arg(0), Logger: logger}
		err := w.Run(ctx, func(d engine.Draft) { printDraft(out, d) })
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case "champions":
		champs, err := c.Champions(ctx)
		if err != nil {
			return err
		}
		for _, ch := range champs {
			fmt.Fprintf(out, "%-14s %s, %s\n", ch.ID, ch.Name, ch.Title)
		}

	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printDraft(out io.Writer, d engine.Draft) {
	snap := types.NewSnapshot(d)
	fmt.Fprintf(out, "[%s] v%d phase=%s", d.ID, d.Version, snap.Phase)
	if snap.ActiveTeam != "" {
		fmt.Fprintf(out, " turn=%d/%d %s %s", snap.ActiveTurnIndex+1, len(engine.TurnOrder), snap.ActiveTeam, snap.ActiveAction)
	}
	fmt.Fprintln(out)
	printTeam(out, "blue", d.BlueTeam)
	printTeam(out, "red ", d.RedTeam)
}

func printTeam(out io.Writer, label string, t engine.DraftTeam) {
	player := "(open)"
	if t.Player != nil {
		player = t.Player.Name
		if t.Player.IsReady {
			player += " *"
		}
	}
	fmt.Fprintf(out, "  %s %-16s bans: %-30s picks: %s\n", label, player, names(t.Bans), names(t.Picks))
}

func names(champs []engine.Champion) string {
	if len(champs) == 0 {
		return "-"
	}
	out := make([]string, len(champs))
	for i, c := range champs {
		out[i] = c.Name
	}
	return strings.Join(out, ", ")
}
