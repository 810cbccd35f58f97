package config

import (
	"testing"
	"time"

	"github.com/adforge/adforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, GetDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr string
	}{
		{
			name: "lock ttl must outlive the provider timeout",
			mutate: func(c *Configuration) {
				c.Dispatch.LockTTL = time.Minute
				c.Provider.Timeout = 2 * time.Minute
			},
			wantErr: "dispatch.lock_ttl",
		},
		{
			name: "lock ttl must outlive the refund window",
			mutate: func(c *Configuration) {
				c.Dispatch.LockTTL = 3 * time.Minute
				c.Provider.Timeout = 2 * time.Minute
				c.Dispatch.RefundMaxElapsed = time.Minute
			},
			wantErr: "dispatch.refund_max_elapsed",
		},
		{
			name: "lock ttl covering the provider call and the refund",
			mutate: func(c *Configuration) {
				c.Dispatch.LockTTL = 3*time.Minute + time.Second
				c.Provider.Timeout = 2 * time.Minute
				c.Dispatch.RefundMaxElapsed = time.Minute
			},
		},
		{
			name: "veo3 default needs a project",
			mutate: func(c *Configuration) {
				c.Provider.Default = types.ProviderVeo3
			},
			wantErr: "provider.veo3.project_id",
		},
		{
			name: "unknown lock backend",
			mutate: func(c *Configuration) {
				c.Dispatch.LockBackend = "etcd"
			},
			wantErr: "LockBackend",
		},
		{
			name: "negative seed credits",
			mutate: func(c *Configuration) {
				c.Ledger.SeedCredits = -1
			},
			wantErr: "SeedCredits",
		},
		{
			name: "veo3 with project",
			mutate: func(c *Configuration) {
				c.Provider.Default = types.ProviderVeo3
				c.Provider.Veo3.ProjectID = "ads-prod"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := GetDefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewConfigReadsEnvironment(t *testing.T) {
	t.Setenv("ADFORGE_DISPATCH_LOCK_WAIT", "2s")
	t.Setenv("ADFORGE_LEDGER_SEED_CREDITS", "250")
	t.Setenv("ADFORGE_SERVER_ALLOWED_ORIGINS", "https://app.adforge.io,https://admin.adforge.io")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.LockWait)
	assert.Equal(t, int64(250), cfg.Ledger.SeedCredits)
	assert.Equal(t, []string{"https://app.adforge.io", "https://admin.adforge.io"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, types.LockBackendMemory, cfg.Dispatch.LockBackend)
}

func TestGetDSN(t *testing.T) {
	c := PostgresConfig{User: "u", Password: "p", DBName: "d", Host: "h", Port: 5432, SSLMode: "disable"}
	assert.Equal(t, "user=u password=p dbname=d host=h port=5432 sslmode=disable", c.GetDSN())
}
