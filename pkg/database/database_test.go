package database

import (
	"bytes"
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/model"
	"errors"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "x.db")})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestInitDBSQLiteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "steps.db")
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: path}, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.UserTask{}))
	assert.True(t, db.Migrator().HasIndex(&model.UserTask{}, "idx_learner_task"))
	assert.FileExists(t, path)
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(filepath.Join(t.TempDir(), "log.db"))), &gorm.Config{
		Logger: newGormLogger(log.New(&buf, "", 0), logger.Warn),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, Migrate(db))
	buf.Reset()

	var ut model.UserTask
	err = db.Where("learner_id = ? AND task_id = ?", 1, "1a").First(&ut).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.Empty(t, buf.String())

	// 其它错误照常输出
	err = db.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
}
