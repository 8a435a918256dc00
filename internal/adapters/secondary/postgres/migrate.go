package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies every pending migration in dir to the database at url.
// It returns true when at least one migration ran.
func Migrate(url, dir string) (bool, error) {
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return false, fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("could not run migrations: %w", err)
	}
	return true, nil
}
