package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"kailospay.backend/internal/config"
	"kailospay.backend/internal/infrastructure/datasources/postgres"
	"kailospay.backend/internal/infrastructure/repositories"
	"kailospay.backend/internal/usecases"
)

type adminGrantRuntime interface {
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
}

type adminGrantDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (adminGrantRuntime, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultAdminGrantDeps() adminGrantDeps {
	return adminGrantDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (adminGrantRuntime, io.Closer, error) {
			db, err := postgres.NewConnection(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}
			store := postgres.NewStore(db)
			userRepo := repositories.NewUserRepository(db)
			return usecases.NewAdminUsecase(userRepo, nil, nil), store, nil
		},
		out: os.Stdout,
	}
}

func parseEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("--email is required")
	}
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid email %q", email)
	}
	return email, nil
}

func runAdminGrant(args []string, deps adminGrantDeps) error {
	def := defaultAdminGrantDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("admin-grant", flag.ContinueOnError)
	emailFlag := fs.String("email", "", "email of the user to promote (required)")
	revokeFlag := fs.Bool("revoke", false, "remove admin rights instead of granting them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email, err := parseEmail(*emailFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	runtime, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	isAdmin := !*revokeFlag
	if err := runtime.SetAdmin(context.Background(), email, isAdmin); err != nil {
		return fmt.Errorf("failed to update %s: %w", email, err)
	}

	if isAdmin {
		_, _ = fmt.Fprintf(deps.out, "Granted admin to %s\n", email)
	} else {
		_, _ = fmt.Fprintf(deps.out, "Revoked admin from %s\n", email)
	}
	return nil
}

func main() {
	if err := runAdminGrant(os.Args[1:], defaultAdminGrantDeps()); err != nil {
		log.Fatal(err)
	}
}
