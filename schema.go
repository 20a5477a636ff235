package account

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package so external
// migration tooling can apply the same DDL.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// CreateSchema applies the embedded migrations in lexical order. The DDL is
// the authoritative schema contract: unique constraints on users.email,
// users.username, (provider, provider_user_id), (target, type) and
// (action, entity, access), plus ON UPDATE/DELETE CASCADE from users down to
// every dependent table.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	RegisterModels(db)

	entries, err := fs.ReadDir(migrationsFS, "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read embedded migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := migrationsFS.ReadFile("data/sql/migrations/" + name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read migration file").
				WithMetadata(map[string]any{"migration": name})
		}

		if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migration").
				WithMetadata(map[string]any{"migration": name})
		}
	}

	return nil
}
