package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"isl-announcer/internal/database"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"

	minPasswordLength = 6
	maxPasswordLength = 72
)

// passwordReader reads a password without echoing it.
type passwordReader interface {
	ReadPassword(prompt string) ([]byte, error)
}

type terminalReader struct {
	out io.Writer
}

func (t terminalReader) ReadPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	fmt.Fprint(t.out, prompt)
	defer fmt.Fprintln(t.out)
	return term.ReadPassword(fd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Getenv, terminalReader{out: os.Stdout}, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, getenv func(string) string, in passwordReader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	switch command {
	case "reset", "status", "logout":
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", sanitizeCommand(command))
		printUsage(stderr)
		return 1
	}

	dbPath := databasePath(getenv)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(stderr, "Error: database not found at %s\n", dbPath)
		fmt.Fprintln(stderr, "Make sure DATABASE_DIR points at the announcer's database directory.")
		return 1
	}

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	switch command {
	case "reset":
		err = resetPassword(ctx, db, in, stdout)
	case "status":
		showStatus(ctx, db, stdout)
	case "logout":
		err = logoutAll(ctx, db, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func databasePath(getenv func(string) string) string {
	dir := getenv("DATABASE_DIR")
	if dir == "" {
		dir = defaultDatabaseDir
	}
	return filepath.Join(dir, database.FileName)
}

// sanitizeCommand replaces everything outside [a-zA-Z0-9_-] with '_' so
// unknown commands can be echoed safely.
func sanitizeCommand(cmd string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, cmd)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ISL Announcer Password Management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: resetpw <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  reset   - Reset the password and end every session")
	fmt.Fprintln(w, "  status  - Check if a password is configured")
	fmt.Fprintln(w, "  logout  - End every session")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func validatePassword(password, confirm []byte) error {
	switch {
	case !bytes.Equal(password, confirm):
		return errors.New("passwords do not match")
	case len(password) < minPasswordLength:
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}
	return nil
}

func resetPassword(ctx context.Context, db *database.Database, in passwordReader, out io.Writer) error {
	if !db.HasUsers(ctx) {
		return errors.New("no password configured yet, use the web interface to set one up")
	}

	password, err := in.ReadPassword("New Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	confirm, err := in.ReadPassword("Confirm Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if err := validatePassword(password, confirm); err != nil {
		return err
	}

	if err := db.UpdatePassword(ctx, string(password)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Fprintln(out, "Password updated successfully.")
	fmt.Fprintln(out, "All existing sessions have been invalidated.")
	return nil
}

func showStatus(ctx context.Context, db *database.Database, out io.Writer) {
	if db.HasUsers(ctx) {
		fmt.Fprintln(out, "Status: Password is configured")
	} else {
		fmt.Fprintln(out, "Status: No password configured (setup required)")
	}
}

func logoutAll(ctx context.Context, db *database.Database, out io.Writer) error {
	if err := db.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	fmt.Fprintln(out, "All sessions have been ended.")
	return nil
}
