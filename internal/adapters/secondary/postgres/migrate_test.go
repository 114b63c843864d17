package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	err := MigrateDown("postgres://unused", "../../../../migrations", 0)
	assert.ErrorContains(t, err, "steps must be positive")
}

func TestMigrateUp_NoChangeIsNotAnError(t *testing.T) {
	pool := requirePool(t)

	// TestMain already applied every migration.
	err := MigrateUp(pool.Config().ConnString(), "../../../../migrations")
	assert.NoError(t, err)
}
