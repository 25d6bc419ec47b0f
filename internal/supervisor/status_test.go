package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMonotonicity(t *testing.T) {
	assert.True(t, StatusHealthy.AtLeast(StatusRunning))
	assert.True(t, StatusHealthy.AtLeast(StatusCreated))
	assert.False(t, StatusExists.AtLeast(StatusRunning))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "HEALTHY", StatusHealthy.String())
	assert.Equal(t, "REMOVED", StatusRemoved.String())
}
