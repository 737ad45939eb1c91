package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEmail(t *testing.T) {
	ctx := context.Background()

	db, err := InitDB(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)

	audit := NewAuditLog(db)
	require.NoError(t, audit.RecordEmail(ctx, "token-a", "r1", 0, "player@example.com"))
	require.NoError(t, audit.RecordEmail(ctx, "token-b", "r1", 1, "other@example.com"))

	var entries []EmailAddress
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, "player@example.com", entries[0].Address)
	assert.Equal(t, "r1", entries[0].Room)
	assert.False(t, entries[0].Created.IsZero())
}

func TestNilAuditLogDropsEverything(t *testing.T) {
	var audit *AuditLog
	assert.NoError(t, audit.RecordEmail(context.Background(), "token", "r1", 0, "x@example.com"))
}
