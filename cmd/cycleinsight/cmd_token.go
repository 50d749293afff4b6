package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/server"
)

// runToken mints an access token for -user signed with auth.jwt_secret.
func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	userID := fs.String("user", "", "user ID (UUID) the token grants access to")
	ttl := fs.Duration("ttl", 0, "token lifetime (default auth.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, err := uuid.Parse(*userID); err != nil {
		fmt.Fprintf(stderr, "invalid -user %q: must be a UUID\n", *userID)
		return 2
	}

	v, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	secret := v.GetString("auth.jwt_secret")
	if secret == "" {
		fmt.Fprintln(stderr, "auth.jwt_secret is not set; the server accepts requests without tokens")
		return 1
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = v.GetDuration("auth.access_token_ttl")
	}
	if lifetime <= 0 {
		lifetime = 15 * time.Minute
	}

	tok, err := auth.NewTokenService([]byte(secret), lifetime).IssueAccessToken(*userID)
	if err != nil {
		fmt.Fprintf(stderr, "issuing token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, tok)
	return 0
}
