package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/leyuan-dev/paper-translator/internal/config"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

// Connect opens the relational store. A non-empty DB_DSN selects MySQL;
// otherwise the embedded sqlite file is used, which is enough for the
// single-instance deployment this service targets.
func Connect(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.DBDSN != "" {
		dialector = mysql.Open(cfg.DBDSN)
	} else {
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := gdb.AutoMigrate(
		&translation.Conversation{},
		&translation.Message{},
		&translation.FileRecord{},
		&translation.Job{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return gdb, nil
}
