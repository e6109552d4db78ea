// Command query is a terminal front end for the report API. It keeps one
// query session against the server and renders results, notices and progress
// as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"dota-report-be/internal/client"
	"dota-report-be/internal/config"
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/querysession"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const help = `commands:
  mode Hero|Player     switch analysis mode (aborts the running query)
  player <id>          your account id
  hero <name>          hero to analyse (Hero mode, fetches when complete)
  other <id>           other account id (Player mode)
  window <w>           month, 3months, 6months, year or all (fetches when complete)
  submit               run the query with the current parameters
  abort                cancel the running query
  heroes               list hero names
  whois <id>           look up a player's name
  status               show the session state
  quit`

func main() {
	cfg := config.Load()

	server := flag.String("server", cfg.App.BaseURL, "report API base URL")
	debug := flag.Bool("debug", false, "log session transitions to stderr")
	flag.Parse()

	log := logger.NewConsoleLogger(*debug)
	defer log.Sync()

	backend := client.NewBackendClient(*server, "cli:"+uuid.NewString(), cfg.Session.ClientTimeout)
	out := newTerminalRenderer(os.Stdout)

	session := querysession.NewController(backend, out, querysession.Options{
		PollInitialDelay: cfg.Session.PollInitialDelay,
		PollInterval:     cfg.Session.PollInterval,
		NoticeTimeout:    cfg.Session.NoticeTimeout,
	}, log)
	defer session.Close()

	form := querysession.NewForm(session)
	out.println(color.New(color.Faint), help)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "mode":
			err = form.SetMode(arg)
		case "player":
			err = form.Set(querysession.FieldPlayer, arg)
		case "hero":
			err = form.Set(querysession.FieldHero, arg)
		case "other":
			err = form.Set(querysession.FieldOtherPlayer, arg)
		case "window":
			err = form.Set(querysession.FieldWindow, arg)
		case "submit":
			err = form.Submit()
		case "abort":
			err = session.AbortCurrent()
		case "heroes":
			err = listHeroes(backend, out)
		case "whois":
			err = whois(backend, out, arg)
		case "status":
			err = status(session, form, out)
		case "quit", "exit":
			return
		default:
			out.println(color.New(color.FgYellow), "unknown command %q\n%s", cmd, help)
		}
		if err != nil {
			out.println(color.New(color.FgRed), "error: %v", err)
		}
	}
}

func lookupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func listHeroes(backend *client.BackendClient, out *terminalRenderer) error {
	ctx, cancel := lookupContext()
	defer cancel()
	heroes, err := backend.Heroes(ctx)
	if err != nil {
		return err
	}
	out.println(nil, "%s", strings.Join(heroes, ", "))
	return nil
}

func whois(backend *client.BackendClient, out *terminalRenderer, id string) error {
	ctx, cancel := lookupContext()
	defer cancel()
	name, err := backend.PlayerName(ctx, id)
	if err != nil {
		return err
	}
	out.println(nil, "%s: %s", id, name)
	return nil
}

func status(session *querysession.Controller, form *querysession.Form, out *terminalRenderer) error {
	snap, err := session.Snapshot()
	if err != nil {
		return err
	}
	p := form.Parameters()
	out.println(color.New(color.FgCyan),
		"generation=%d status=%s active=%t poller=%t | mode=%s player=%q hero=%q other=%q window=%q",
		snap.Generation, snap.Status, snap.Active, snap.PollerRunning,
		p.Mode, p.PlayerID, p.HeroName, p.OtherPlayerID, p.Window)
	return nil
}
