package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/fs"
)

func TestDriverName(t *testing.T) {
	tests := []struct {
		engine string
		want   string
	}{
		{engine: "pgx", want: "pgx"},
		{engine: "postgres", want: "postgres"},
		{engine: "", want: "postgres"},
	}
	for _, tt := range tests {
		conf := core.NewTestConfig()
		conf.Database.Engine = tt.engine
		if got := DriverName(conf); got != tt.want {
			t.Errorf("DriverName(%q) = %v, want %v", tt.engine, got, tt.want)
		}
	}
}

func TestDSN(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Host:          "db",
		Port:          5433,
		Name:          "scilearn",
		User:          "app",
		Password:      "p@ss word",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}

	u, err := url.Parse(dsn(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/scilearn", u.Path)
	assert.Equal(t, "app", u.User.Username())
	pwd, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pwd)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	u, err = url.Parse(dsn("postgres", true, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.User.Username())
	assert.Equal(t, "/postgres", u.Path)

	conf.Database.DisableTLS = false
	u, err = url.Parse(dsn(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := appfs.FS.ReadDir(migrationsDir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 3)
}
