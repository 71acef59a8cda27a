package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_STORAGE_BUCKET", "sims-test")
	t.Setenv("TEST_STORAGE_PRESIGNED_EXPIRY", "90s")
	t.Setenv("TEST_STORAGE_MAX_SIZE", "1024")
	t.Setenv("TEST_REDIS_LOGIN_ATTEMPTS", "3")

	conf := NewConfig()

	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "SIMS", conf.AppName)
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)
	assert.Equal(t, "sims-test", conf.Storage.Bucket)
	assert.Equal(t, 90*time.Second, conf.Storage.PresignedExpiry)
	assert.Equal(t, int64(1024), conf.Storage.MaxSize)
	assert.Equal(t, "private", conf.Storage.DefaultACL)
	assert.Equal(t, 3, conf.Redis.LoginAttempts)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
}

func TestStorageConfig_Validate(t *testing.T) {
	valid := StorageConfig{
		AccessKeyID:     "AKID",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Bucket:          "sims",
		DefaultACL:      "private",
		PresignedExpiry: time.Hour,
		MaxSize:         1 << 20,
	}

	tests := []struct {
		name        string
		conf        func() StorageConfig
		wantMissing []string
	}{
		{name: "valid", conf: func() StorageConfig { return valid }},
		{
			name:        "empty",
			conf:        func() StorageConfig { return StorageConfig{} },
			wantMissing: []string{"storage.access_key_id", "storage.secret_access_key", "storage.region", "storage.bucket", "storage.default_acl", "storage.presigned_expiry", "storage.max_size"},
		},
		{
			name: "no bucket",
			conf: func() StorageConfig {
				c := valid
				c.Bucket = ""
				return c
			},
			wantMissing: []string{"storage.bucket"},
		},
		{
			name: "no max size & expiry",
			conf: func() StorageConfig {
				c := valid
				c.MaxSize = 0
				c.PresignedExpiry = 0
				return c
			},
			wantMissing: []string{"storage.presigned_expiry", "storage.max_size"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf().Validate()
			if tt.wantMissing == nil {
				assert.NoError(t, err)
				return
			}
			var confErr *ConfigError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, "storage", confErr.Section)
			assert.Equal(t, tt.wantMissing, confErr.Missing)
		})
	}
}

func TestCleanOrderings(t *testing.T) {
	got := CleanOrderings(
		[]DBOrdering{{Field: "Due", Ascending: true}, {Field: "password"}, {Field: "due"}, {Field: "updated_at", Ascending: true}},
		"due", "created_at", "updated_at",
	)
	want := []DBOrdering{
		{Field: "due", Ascending: true},
		{Field: "updated_at", Ascending: true},
		{Field: "created_at"},
		{Field: "id"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, "due ASC, updated_at ASC, created_at DESC, id DESC", OrderingClause(got))
}
