// Command mockapi serves the in-process admin backend stand-in over HTTP so
// adminctl and local console builds have something to talk to.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/motrack/adminkit/backendtest"
	"github.com/motrack/adminkit/principal"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running mock API: %s\n", err)
	}
	log.Printf("Mock API stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname("Motrack Mock API")

	backend, err := seed()
	if err != nil {
		return err
	}

	addr := os.Getenv("MOTRACK_MOCKAPI_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: backend.Handler()}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

// seed loads fixture admins covering every role level plus the polled list
// endpoints.
func seed() (*backendtest.Server, error) {
	backend := backendtest.New()

	fixtures := []struct {
		p        principal.Principal
		password string
	}{
		{
			p: principal.Principal{
				ID: "adm-1", Email: "root@motrack.io", FirstName: "Root", LastName: "Admin",
				IsActive: true,
				Role:     &principal.Role{Name: principal.RoleSuperAdmin, Level: principal.LevelSuperAdmin, DisplayName: "Super Admin"},
			},
			password: "RootPass123",
		},
		{
			p: principal.Principal{
				ID: "adm-2", Email: "ops@motrack.io", FirstName: "Olive", LastName: "Ops",
				IsActive: true,
				Role:     &principal.Role{Name: principal.RoleAdmin, Level: principal.LevelAdmin, DisplayName: "Admin"},
			},
			password: "OpsPass123",
		},
		{
			p: principal.Principal{
				ID: "adm-3", Email: "mod@motrack.io", FirstName: "Misha", LastName: "Moderator",
				IsActive: true,
				Role:     &principal.Role{Name: principal.RoleModerator, Level: principal.LevelModerator, DisplayName: "Moderator"},
			},
			password: "ModPass123",
		},
	}
	for _, f := range fixtures {
		if err := backend.AddAdmin(f.p, f.password); err != nil {
			return nil, err
		}
	}

	if err := backend.SetData("/users", []map[string]interface{}{
		{"id": "u-1", "name": "Dana Rider", "motorcycles": 2},
		{"id": "u-2", "name": "Jon Courier", "motorcycles": 1},
	}); err != nil {
		return nil, err
	}
	if err := backend.SetData("/trips", []map[string]interface{}{
		{"id": "t-1", "userId": "u-1", "distanceKm": 41.3},
	}); err != nil {
		return nil, err
	}
	if err := backend.SetData("/gas-stations", []map[string]interface{}{
		{"id": "g-1", "name": "North Fuel", "lat": 52.52, "lng": 13.40},
	}); err != nil {
		return nil, err
	}
	return backend, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Mock API listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
