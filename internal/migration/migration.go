package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	appdomain "github.com/imaginearsclub/backstage/internal/application/domain"
	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	refdomain "github.com/imaginearsclub/backstage/internal/reference/domain"
	policydomain "github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations. The schema is
// created automatically on startup so a fresh deployment is usable
// without manual steps.
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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// RunAutoMigrations builds the schema from the models. Used for the
// sqlite and mysql dialects, which the SQL migrations do not target.
func RunAutoMigrations(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(
		&staffdomain.Staff{},
		&authdomain.Session{},
		&authdomain.PasswordReset{},
		&policydomain.SessionPolicy{},
		&appdomain.StaffApplication{},
		&auditdomain.AuditLog{},
		&refdomain.Country{},
	)
}
