package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"expenses/internal/backend"
	applog "expenses/internal/log"

	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add-owner", flag.ContinueOnError)
	fs.SetOutput(stderr)

	owner := fs.String("owner", "", "Owner key to register (prompted for when omitted)")
	kind := fs.String("backend", envOr("DATA_BACKEND", "sqlite"), "Backend: sqlite or postgres")
	dbPath := fs.String("db", envOr("SQLITE_DB_PATH", "./data/expenses.db"), "Path to the SQLite database file")
	dbURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if backend.BackendType(*kind) == backend.MemoryBackend {
		return fmt.Errorf("the memory backend keeps owners in seed_owners.txt; edit that file instead")
	}

	name := strings.TrimSpace(*owner)
	if name == "" {
		if isTerminal(stdin) {
			fmt.Fprint(stdout, "Owner: ")
		}
		var err error
		name, err = readLine(stdin)
		if err != nil {
			fmt.Fprintln(stdout, "Usage: add-owner -owner <key> [-backend sqlite|postgres] [-db <path>] [-database-url <url>]")
			fs.PrintDefaults()
			return fmt.Errorf("missing required flags: owner")
		}
	}
	if name == "" {
		return fmt.Errorf("owner cannot be empty")
	}

	ctx := context.Background()
	result, err := backend.NewFactory(applog.New(applog.Config{Level: slog.LevelWarn, Output: stderr})).CreateBackend(ctx, backend.Config{
		Type:         backend.BackendType(*kind),
		SQLiteDBPath: *dbPath,
		DatabaseURL:  *dbURL,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	exists, err := result.Store.OwnerExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check owner: %w", err)
	}
	if exists {
		return fmt.Errorf("owner %s already exists", name)
	}
	if err := result.Store.CreateOwner(ctx, name); err != nil {
		return fmt.Errorf("failed to create owner: %w", err)
	}

	fmt.Fprintf(stdout, "Owner %s registered\n", name)
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
