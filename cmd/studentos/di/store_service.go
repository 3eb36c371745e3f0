package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/store"
)

// StoreService wraps the SQLite store.
type StoreService struct {
	DB *store.DB
}

// NewStore opens the SQLite database and runs migrations.
func NewStore(i do.Injector) (*StoreService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	db, err := store.Open(cfgSvc.Get().Database.GetPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &StoreService{DB: db}, nil
}

// Shutdown implements do.Shutdowner, closing the database connection.
func (s *StoreService) Shutdown() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
