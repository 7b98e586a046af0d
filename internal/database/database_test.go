package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: DriverSQLite, DBSQLitePath: "test.db"})
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, d.Name())

	d, err = Dialector(&config.Config{DBDriver: DriverPostgres, DBHost: "localhost", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, d.Name())

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		env     string
		driver  string
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{"hybrid dev postgres", "hybrid", "development", DriverPostgres, true, true, false},
		{"hybrid prod postgres", "hybrid", "production", DriverPostgres, true, false, false},
		{"empty mode defaults to hybrid", "", "production", DriverPostgres, true, false, false},
		{"sql postgres", "sql", "development", DriverPostgres, true, false, false},
		{"auto dev postgres", "auto", "development", DriverPostgres, false, true, false},
		{"auto prod refused", "auto", "production", DriverPostgres, false, false, true},
		{"sqlite always auto", "sql", "development", DriverSQLite, false, true, false},
		{"unknown mode", "magic", "development", DriverPostgres, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{DBSchemaMode: tt.mode, Env: tt.env}, tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAut, runAuto)
		})
	}
}

func TestApplySchema_SQLiteCreatesTables(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, ApplySchema(context.Background(), db, &config.Config{Env: "test"}))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Follow{}, "idx_follow_user_author"))

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{Env: "test"})
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init_schema", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CHECK (user_id <> author_id)")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS follows")
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version)
	}
	assert.Equal(t, "000001_init_schema", all[0].String())
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations_Validation(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	assert.ErrorContains(t, err, "down migration")

	_, err = LoadMigrations(fstest.MapFS{
		"m/abc_a.up.sql":   {Data: []byte("SELECT 1;")},
		"m/abc_a.down.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	assert.ErrorContains(t, err, "invalid version")

	loaded, err := LoadMigrations(fstest.MapFS{
		"m/000002_b.up.sql":   {Data: []byte("B")},
		"m/000002_b.down.sql": {Data: []byte("b")},
		"m/000001_a.up.sql":   {Data: []byte("A")},
		"m/000001_a.down.sql": {Data: []byte("a")},
		"m/README.md":         {Data: []byte("ignored")},
	}, "m")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].Name)
	assert.Equal(t, "B", loaded[1].UpScript)
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 7}, registered), "000007")
}

func TestMigrationStore_MissingTableIsEmpty(t *testing.T) {
	db := openSQLite(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}
