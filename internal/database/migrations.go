package database

import (
	"errors"
	"strings"
	"time"

	"github.com/gushub/manager/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationTrimGithubPaths = "2026-07-14_trim_github_path_whitespace"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationTrimGithubPaths, apply: trimGithubPaths},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Early builds stored github_path values with stray whitespace copied from
// form input, which broke revision-token lookups. Normalize existing rows.
func trimGithubPaths(db *gorm.DB) error {
	type pathRow struct {
		ID         int64
		GithubPath string
	}

	for _, table := range []string{
		catalog.Course{}.TableName(),
		catalog.Module{}.TableName(),
		catalog.Lesson{}.TableName(),
		catalog.Task{}.TableName(),
	} {
		var rows []pathRow
		if err := db.Table(table).Select("id", "github_path").Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			trimmed := strings.TrimSpace(row.GithubPath)
			if trimmed == row.GithubPath {
				continue
			}
			if err := db.Table(table).Where("id = ?", row.ID).Update("github_path", trimmed).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
