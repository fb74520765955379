package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "0001_reference_passages", migrations[0].ID)
	assert.Equal(t, "0002_evaluation_records", migrations[1].ID)

	for _, m := range migrations {
		assert.NotEmpty(t, m.UpSQL, m.ID)
		assert.NotEmpty(t, m.DownSQL, m.ID)
	}

	assert.Contains(t, migrations[0].UpSQL, dimensionsPlaceholder)
	assert.NotContains(t, migrations[1].UpSQL, "UNIQUE (course_id")
}
