package docstore

import (
	"context"
	"log"

	"github.com/boxoffice/boxoffice/internal/config"
	"github.com/boxoffice/boxoffice/internal/database"
)

// Open builds the Store selected by cfg.Driver. The MySQL backend gets its
// documents table created if missing.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewMySQL(db), nil
	case config.DriverMemory:
		log.Printf("store: using in-memory store; data is lost on exit")
		return NewMemory(), nil
	default:
		fs, err := NewFirestore(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			return nil, err
		}
		// not returned directly: a nil *Firestore would make a non-nil Store
		return fs, nil
	}
}
