package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chatbot-economy-api/internal/config"
)

// Open builds the backend named by cfg.Type.
func Open(cfg config.StoreConfig) (Backend, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory":
		return NewMemoryAccountStore(), nil
	case "bolt":
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return NewBoltAccountStore(cfg.Path)
	case "sqlite":
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return NewSQLiteAccountStore(cfg.Path)
	case "postgres":
		return NewPostgresAccountStore(cfg.PostgresDSN())
	case "mysql":
		return NewMySQLAccountStore(cfg.MySQLDSN())
	case "mongodb":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required when STORE_TYPE=mongodb")
		}
		return NewMongoAccountStore(cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Type)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
