package repositories

import (
	"ingest-api/pkg/postgres"
)

// Repositories holds all repository instances
type Repositories struct {
	Jobs     *JobRepository
	Elements *ElementRepository
}

// NewRepositories creates and returns all repository instances
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Jobs:     NewJobRepository(db),
		Elements: NewElementRepository(db),
	}
}
