package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/havenstay/haven-go/internal/config"
	"github.com/havenstay/haven-go/internal/database"
	"github.com/havenstay/haven-go/internal/httpx"
	"github.com/havenstay/haven-go/internal/logging"
	"github.com/havenstay/haven-go/internal/place"
	"github.com/havenstay/haven-go/internal/session"
	"github.com/havenstay/haven-go/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open credentials db: %v", err)
	}
	defer db.Close()

	creds := store.NewCredentialStore(db)
	sess := session.NewManager(session.Config{
		BaseURL: cfg.APIURL,
		Store:   creds,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	client := httpx.New(httpx.Config{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
		Logger:     logger,
	})
	places := place.NewService(place.Config{
		BaseURL: cfg.APIURL,
		Client:  client,
		Logger:  logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess.Hydrate(ctx)

	switch os.Args[1] {
	case "places":
		all, err := places.Places(ctx, hasFlag("--refresh"))
		if err != nil {
			log.Fatalf("fetch places: %v", err)
		}
		printJSON(all)

	case "place":
		if len(os.Args) < 3 {
			log.Fatal("usage: haven place <id>")
		}
		p, err := places.PlaceByID(ctx, os.Args[2], hasFlag("--refresh"))
		if err != nil {
			log.Fatalf("fetch place: %v", err)
		}
		if p == nil {
			fmt.Println("place not found")
			os.Exit(1)
		}
		printJSON(p)

	case "login":
		if len(os.Args) < 4 {
			log.Fatal("usage: haven login <email> <password>")
		}
		res := sess.Login(ctx, os.Args[2], os.Args[3])
		if !res.Success {
			log.Fatalf("login failed: %s", res.Error)
		}
		fmt.Println("logged in")

	case "register":
		if len(os.Args) < 6 {
			log.Fatal("usage: haven register <first> <last> <email> <password>")
		}
		res := sess.Register(ctx, session.Registration{
			FirstName: os.Args[2],
			LastName:  os.Args[3],
			Email:     os.Args[4],
			Password:  os.Args[5],
		})
		if !res.Success {
			log.Fatalf("registration failed: %s", res.Error)
		}
		fmt.Println("registered and logged in")

	case "logout":
		sess.Logout()
		places.ClearCache()
		fmt.Println("logged out")

	case "whoami":
		if !sess.IsAuthenticated() {
			fmt.Println("not logged in")
			os.Exit(1)
		}
		printJSON(sess.User())

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: haven <command>

commands:
  places [--refresh]                       list all places
  place <id> [--refresh]                   show one place
  login <email> <password>                 log in
  register <first> <last> <email> <pass>   create an account and log in
  logout                                   log out
  whoami                                   show the current user`)
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[2:] {
		if arg == name {
			return true
		}
	}
	return false
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(out))
}
