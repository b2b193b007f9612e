package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	lifecycledomain "github.com/smallbiznis/staydesk/internal/lifecycle/domain"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
	staffdomain "github.com/smallbiznis/staydesk/internal/staff/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&tenantdomain.Record{},
		&usagedomain.Counter{},
		&auditdomain.EntityEvent{},
		&lifecycledomain.EventRecord{},
		&roomdomain.Room{},
		&staffdomain.User{},
		&apikeydomain.APIKey{},
	}
}

// Apply brings the schema up to date. Postgres runs the versioned SQL
// migrations; mysql and sqlite fall back to gorm AutoMigrate.
func Apply(conn *gorm.DB, dialect string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dialect == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
