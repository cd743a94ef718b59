package repository

import (
	"sync"

	"gorm.io/gorm"
)

var (
	globalRepos *Repositories
	globalOnce  sync.Once
)

// InitializeFactory builds the shared repositories once. Later calls are
// ignored.
func InitializeFactory(db *gorm.DB) {
	globalOnce.Do(func() {
		globalRepos = NewRepositories(db)
	})
}

// GetGlobalRepositories returns the shared repositories and panics before
// InitializeFactory ran.
func GetGlobalRepositories() *Repositories {
	if globalRepos == nil {
		panic("repositories not initialized, call InitializeFactory first")
	}
	return globalRepos
}
