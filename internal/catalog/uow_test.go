package catalog

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUUIDOrNewKeepsExisting(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, uuidOrNew(id))
}

func TestUUIDOrNewAssignsFresh(t *testing.T) {
	assert.NotEqual(t, uuid.Nil, uuidOrNew(uuid.Nil))
}

func TestNullableBool(t *testing.T) {
	assert.Nil(t, nullableBool(sql.NullBool{Valid: false}))
	assert.Equal(t, true, nullableBool(sql.NullBool{Bool: true, Valid: true}))
	assert.Equal(t, false, nullableBool(sql.NullBool{Bool: false, Valid: true}))
}
