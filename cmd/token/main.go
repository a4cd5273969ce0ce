// Command token mints a bearer token for the mutating library routes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"booklibrary/internal/auth"
	"booklibrary/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "librarian", "Token subject")
	ttl := fs.Duration("ttl", 0, "Token lifetime; defaults to AUTH_TOKEN_TTL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is not set; mutating routes are open")
	}
	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, jti, err := auth.GenerateToken(cfg.Auth.JWTSecret, *subject, auth.RoleEditor, lifetime)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(os.Stderr, "jti=%s expires=%s\n", jti, time.Now().Add(lifetime).Format(time.RFC3339))
	return nil
}
