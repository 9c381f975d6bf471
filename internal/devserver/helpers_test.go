package devserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/internal/storage"
	"github.com/voxscribe/voxscribe/pkg/config"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		BCryptCost:      bcrypt.MinCost,
		DailyMinutes:    120,
	}
}

func newTestDB(t *testing.T) *common.Database {
	t.Helper()
	db, err := common.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(&User{}, &Job{}, &PendingUpload{}))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestBlobs(t *testing.T) storage.BlobStore {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return blobs
}
