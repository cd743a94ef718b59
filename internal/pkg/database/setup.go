package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared database handle, nil before SetupDatabase ran.
func GetDB() *gorm.DB {
	return DB
}

// DSN builds the MySQL data source name from the environment.
func DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

func SetupDatabase() {
	var err error
	dsn := DSN()

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{TranslateError: true})
		if err == nil {
			if mErr := DB.AutoMigrate(
				&models.User{},
				&models.UserSettings{},
				&models.Workspace{},
				&models.RPCHealthCheck{},
				&models.StripePlan{},
				&models.Explorer{},
				&models.ExplorerDomain{},
				&models.ExplorerSubscription{},
				&models.WebhookEvent{},
			); mErr != nil {
				log.Errorf("[Database] AutoMigrate failed: %v", mErr)
			}
			return
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
