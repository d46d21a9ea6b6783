package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestSequence(t *testing.T) {
	next := Sequence("task")
	assert.Equal(t, "task-1", next())
	assert.Equal(t, "task-2", next())

	other := Sequence("col")
	assert.Equal(t, "col-1", other())
}
