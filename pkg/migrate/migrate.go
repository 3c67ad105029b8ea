package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written and where the embedded set
// lives in the source tree.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migrations to apply. An empty dir selects the set
// compiled into the binary.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// Result is one applied (or reverted) migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
}

// Runner applies goose migrations to a postgres database.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, migrations fs.FS) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Run executes one of up, down, redo or status.
func (r *Runner) Run(ctx context.Context, command string) ([]Result, error) {
	switch command {
	case "up":
		res, err := r.provider.Up(ctx)
		return results(res...), wrap(command, err)
	case "down":
		res, err := r.provider.Down(ctx)
		return results(res), wrap(command, err)
	case "redo":
		down, err := r.provider.Down(ctx)
		if err != nil {
			return results(down), wrap(command, err)
		}
		up, err := r.provider.UpByOne(ctx)
		return results(down, up), wrap(command, err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return nil, wrap(command, err)
		}
		out := make([]Result, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, Result{Version: st.Source.Version, Path: st.Source.Path, Direction: string(st.State)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
}

// MigrateTo moves the schema up or down to the target version
// (YYYYMMDDHHMMSS).
func (r *Runner) MigrateTo(ctx context.Context, targetVersion string) ([]Result, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		res, err := r.provider.UpTo(ctx, target)
		return results(res...), wrap("up-to", err)
	default:
		res, err := r.provider.DownTo(ctx, target)
		return results(res...), wrap("down-to", err)
	}
}

func (r *Runner) Close() error {
	return r.provider.Close()
}

func results(res ...*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(res))
	for _, mr := range res {
		if mr == nil || mr.Source == nil {
			continue
		}
		out = append(out, Result{Version: mr.Source.Version, Path: mr.Source.Path, Direction: mr.Direction})
	}
	return out
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
