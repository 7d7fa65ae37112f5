package store

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/efreitasn/perpengine/internal/domain"
)

// NewDatabase opens the sqlite database at path and migrates the order
// record schema. Use "file::memory:?cache=shared" style DSNs for
// throwaway databases in tests.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.OrderRecord{}); err != nil {
		return nil, err
	}

	return db, nil
}
