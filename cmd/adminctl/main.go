// Command adminctl drives the motrack admin console core from a terminal:
// log in, inspect the session and its capabilities, and watch the polled
// data feeds the way the dashboard does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/motrack/adminkit/datacache"
	"github.com/motrack/adminkit/internal/config"
	"github.com/motrack/adminkit/permissions"
	"github.com/motrack/adminkit/polling"
	"github.com/motrack/adminkit/principal"
	"github.com/motrack/adminkit/restapi"
	"github.com/motrack/adminkit/session"
	"github.com/motrack/adminkit/session/filestore"
)

var watchPaths = []string{"/users", "/trips", "/gas-stations"}

func main() {
	if err := run(); err != nil {
		log.Fatalf("adminctl: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	clientOpts := []restapi.Option{
		restapi.WithTimeout(cfg.HTTPTimeout),
		restapi.WithLogger(logger),
	}
	if cfg.LegacyBaseURL != "" {
		clientOpts = append(clientOpts, restapi.WithLegacyBaseURL(cfg.LegacyBaseURL))
	}
	client, err := restapi.New(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		return err
	}

	manager, err := session.New(client, filestore.New(cfg.SessionFile), session.WithLogger(logger))
	if err != nil {
		return err
	}

	flag.Parse()
	command := flag.Arg(0)
	ctx := context.Background()

	switch command {
	case "login":
		return login(ctx, cfg, manager)
	case "logout":
		return manager.Logout(ctx)
	case "whoami":
		return whoami(ctx, manager)
	case "can":
		return can(ctx, manager, flag.Arg(1))
	case "watch":
		return watch(ctx, cfg, manager, client, logger)
	default:
		fmt.Fprintln(os.Stderr, "usage: adminctl <login|logout|whoami|can|watch>")
		return errors.New("unknown command")
	}
}

func login(ctx context.Context, cfg *config.Config, manager *session.Manager) error {
	displayAppname(cfg.AppName)

	email := os.Getenv("MOTRACK_EMAIL")
	password := os.Getenv("MOTRACK_PASSWORD")
	if email == "" || password == "" {
		return errors.New("set MOTRACK_EMAIL and MOTRACK_PASSWORD")
	}

	p, err := manager.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", p.FullName(), p.Email)
	return nil
}

func whoami(ctx context.Context, manager *session.Manager) error {
	p, err := verified(ctx, manager)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", p.FullName(), p.Email)
	if p.Role != nil {
		fmt.Printf("role: %s (level %d)\n", p.Role.Name, p.Role.Level)
	}
	return nil
}

func can(ctx context.Context, manager *session.Manager, capability string) error {
	if capability == "" {
		return errors.New("usage: adminctl can <capability>")
	}
	if _, err := verified(ctx, manager); err != nil {
		return err
	}
	checker := permissions.NewChecker(manager.Principal)
	fmt.Printf("%s: %t\n", capability, checker.Has(permissions.Capability(capability)))
	return nil
}

func watch(ctx context.Context, cfg *config.Config, manager *session.Manager, client *restapi.Client, logger zerolog.Logger) error {
	if _, err := verified(ctx, manager); err != nil {
		return err
	}

	cache, err := datacache.New(client, manager.Token, datacache.WithLogger(logger))
	if err != nil {
		return err
	}

	refresh := func() {
		for _, path := range watchPaths {
			data, err := cache.Get(ctx, path)
			if err != nil {
				fmt.Printf("%-16s unavailable: %s\n", path, err)
				continue
			}
			fmt.Printf("%-16s %d bytes\n", path, len(data))
		}
	}
	refresh()

	countdown := polling.NewCountdown(cfg.PollInterval)
	handle := polling.NewInvalidator(polling.WithLogger(logger)).Start(cfg.PollInterval, func() {
		cache.InvalidateAll()
		refresh()
		countdown.Reset()
	})
	defer handle.Cancel()

	display := time.NewTicker(time.Second)
	defer display.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case <-display.C:
			fmt.Printf("\rrefresh in %2ds ", countdown.Tick())
		case <-stop:
			fmt.Println()
			return nil
		}
	}
}

// verified makes sure the persisted session still holds up before any
// command relies on it.
func verified(ctx context.Context, manager *session.Manager) (*principal.Principal, error) {
	if !manager.HasPersistedSession() {
		return nil, errors.New("not logged in, run: adminctl login")
	}
	return manager.VerifySession(ctx)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
