// Command bookings-export signs in as a user and writes that user's
// bookings, or every booking for an admin, to a PDF or CSV file.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/config"
	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/identity"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/report"
	"github.com/boxoffice/boxoffice/internal/repository"
	"github.com/boxoffice/boxoffice/internal/session"
)

func main() {
	email := flag.String("email", "", "account email")
	all := flag.Bool("all", false, "export every booking (admin only)")
	format := flag.String("format", "pdf", "output format: pdf or csv")
	status := flag.String("status", "", "only bookings with this status")
	out := flag.String("out", "", "output file (default bookings.pdf or bookings.csv)")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}
	// the password is never a flag so it stays out of shell history
	password := os.Getenv("BOXOFFICE_PASSWORD")
	if *email == "" || password == "" {
		log.Fatal("export: -email and BOXOFFICE_PASSWORD are required")
	}
	st := model.Status(strings.ToLower(*status))
	if st != "" && !st.Valid() {
		log.Fatalf("export: unknown status %q", *status)
	}
	renderer, err := report.ForFormat(*format)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	path := *out
	if path == "" {
		path = renderer.Filename()
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	n, err := run(ctx, cfg, *email, password, *all, st, renderer, path)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("wrote %d bookings to %s\n", n, path)
}

func run(ctx context.Context, cfg config.Config, email, password string, all bool, st model.Status, r report.Renderer, path string) (int, error) {
	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	auth := identity.NewAuthenticator(identity.Config{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		ResetTTL:   cfg.Auth.ResetTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, store, nil)
	users := repository.NewUserRepo(store)
	client := identity.NewClient(auth)

	mgr := session.NewManager(client, users)
	mgr.Start()
	defer mgr.Close()

	if _, err := client.SignIn(ctx, email, password); err != nil {
		return 0, fmt.Errorf("sign in: %w", err)
	}
	defer mgr.SignOut(context.Background())
	if err := mgr.WaitReady(ctx); err != nil {
		return 0, err
	}
	p := mgr.Current()
	if p == nil {
		return 0, errors.New("no session after sign in")
	}

	agg := booking.NewAggregator(repository.NewBookingRepo(store), repository.NewMovieRepo(store), users)
	agg.FanOut = cfg.FanOut
	if agg.AdminPolicy, err = booking.ParsePolicy(cfg.AdminJoinPolicy); err != nil {
		return 0, err
	}

	var (
		views []booking.View
		title string
	)
	if all {
		if !mgr.IsAdmin() {
			return 0, fmt.Errorf("%s is not an admin", p.Email)
		}
		views, err = agg.ListAll(ctx, st)
		title = report.TitleAdmin
	} else {
		views, err = agg.ListForUser(ctx, p.UID, st)
		title = report.TitleUser
	}
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, report.BuildTable(title, views)); err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return len(views), nil
}
