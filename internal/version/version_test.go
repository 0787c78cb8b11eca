package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v, c, d := Info()

	assert.Equal(t, "dev", v)
	assert.Equal(t, "unknown", c)
	assert.Equal(t, "unknown", d)
	assert.Equal(t, v, GetVersion())
	assert.Equal(t, c, GetCommit())
	assert.Equal(t, d, GetDate())
}

func TestString(t *testing.T) {
	assert.Equal(t, "items-service version=dev commit=unknown date=unknown", String())
}
