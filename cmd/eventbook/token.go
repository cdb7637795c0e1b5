package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/infra/config"
)

const tokenCommand = "token"

var errTokenUsage = errors.New("usage: eventbook token <subject> <client|supplier|operator>")

// mintToken prints a bearer token for local testing. Deployed environments
// get their tokens from the identity provider that shares JWT_SECRET.
func mintToken(cfg config.Config, logger *slog.Logger, args []string, out io.Writer) error {
	if cfg.Env != "dev" && cfg.Env != "local" && cfg.Env != "test" {
		return fmt.Errorf("token command is disabled in %q", cfg.Env)
	}
	if len(args) != 2 {
		return errTokenUsage
	}
	actor := domainbooking.Actor{ID: args[0], Role: domainbooking.Role(args[1])}
	if !actor.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", errTokenUsage, args[1])
	}
	token, err := tokenService(cfg, logger).Issue(actor)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
