// Package dbtest opens throwaway in-memory databases for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/BlockFox/app/models"
)

// usersTable replaces the MySQL specific email column of models.User.
const usersTable = `CREATE TABLE users (
	id integer PRIMARY KEY AUTOINCREMENT,
	name text,
	email text UNIQUE,
	password text,
	role text DEFAULT 'user',
	status text DEFAULT 'active',
	stripe_customer_id text DEFAULT '',
	can_trial numeric DEFAULT true,
	can_use_demo_plan numeric DEFAULT false,
	crypto_payment_enabled numeric DEFAULT false,
	default_data_retention_limit integer DEFAULT 7,
	created_at datetime,
	updated_at datetime,
	deleted_at datetime
)`

// Open returns a migrated database private to the test. It is dropped when
// the test ends. Driver errors are translated like in SetupDatabase.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// the in-memory database lives as long as its only connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(usersTable).Error)
	require.NoError(t, db.AutoMigrate(
		&models.Workspace{},
		&models.RPCHealthCheck{},
		&models.StripePlan{},
		&models.Explorer{},
		&models.ExplorerDomain{},
		&models.ExplorerSubscription{},
	))
	return db
}
