package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/database/sqlite"
	"github.com/sagarc03/cybervault/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func randomTables(t *testing.T) cybervault.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return cybervault.Tables{Files: "files_" + suffix, Users: "users_" + suffix}
}

// setupTestRepos connects to an in-memory database and migrates unique tables.
func setupTestRepos(t *testing.T) (cybervault.MetaDataRepo, identity.UserRepo) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.Files(), db.Users()
}

func newFile(owner, name string, size int64) cybervault.NewFile {
	return cybervault.NewFile{
		Name:       name,
		Size:       size,
		MimeType:   "text/plain",
		StorageKey: cybervault.StorageKey(owner, name),
		OwnerID:    owner,
	}
}
