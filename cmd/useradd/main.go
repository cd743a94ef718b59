package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/database"
	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

// useradd creates a user, or finds an existing one by email, and prints a
// freshly issued API key. Issuing a key revokes the previous one.
func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	password := flag.String("password", "", "password of a new user")
	demo := flag.Bool("demo", false, "allow the demo plan")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		flag.Usage()
		os.Exit(1)
	}

	env.SetupEnvFile()
	database.SetupDatabase()
	users := repository.NewRepositories(database.GetDB()).User

	user, err := users.GetByEmail(strings.TrimSpace(*email))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = models.CreateUser(*name, strings.TrimSpace(*email), *password)
		if err != nil {
			log.Fatalf("Invalid user: %v", err)
		}
		user.CanUseDemoPlan = *demo
		if err := users.Create(user); err != nil {
			log.Fatalf("Creating user failed: %v", err)
		}
		log.Printf("Created user %d (%s)", user.ID, user.Email)
	case err != nil:
		log.Fatalf("Looking up user failed: %v", err)
	default:
		log.Printf("Found user %d (%s)", user.ID, user.Email)
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID)
	if err != nil {
		log.Fatalf("Loading user settings failed: %v", err)
	}
	key, err := settings.IssueAPIKey()
	if err != nil {
		log.Fatalf("Issuing API key failed: %v", err)
	}
	if err := users.SaveSettings(settings); err != nil {
		log.Fatalf("Saving API key failed: %v", err)
	}

	fmt.Println(key)
}
