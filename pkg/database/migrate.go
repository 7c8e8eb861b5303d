package database

import (
	"fmt"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/room"

	"gorm.io/gorm"
)

// models is every table the portal owns. User records live with the
// identity provider and are never migrated here.
func models() []any {
	return []any{
		&room.Room{},
		&room.Participant{},
		&message.Message{},
		&message.Attachment{},
	}
}

// RunFullMigration applies the GORM schema, then the raw SQL migrations
// that add the indexes AutoMigrate cannot express.
func RunFullMigration(db *gorm.DB, migrationsDir string) error {
	if err := db.AutoMigrate(models()...); err != nil {
		return err
	}
	return ApplyRawMigrations(db, migrationsDir)
}

func TableExists(db *gorm.DB, name string) (bool, error) {
	var exists bool
	err := db.Raw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?)",
		name,
	).Scan(&exists).Error
	return exists, err
}

func TableCount(db *gorm.DB, name string) (int64, error) {
	var count int64
	err := db.Table(name).Count(&count).Error
	return count, err
}

// DropAllTables drops the portal's tables in dependency order.
func DropAllTables(db *gorm.DB) error {
	tables := []string{"message_attachments", "messages", "room_participants", "rooms"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
