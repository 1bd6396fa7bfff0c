package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, AppName+"/"))
	assert.Equal(t, AppName+"/"+Commit(), full)
	assert.NotEmpty(t, Commit())
}

func TestShort(t *testing.T) {
	assert.Equal(t, "a3f8c2d1", short("a3f8c2d1e9b7a6c5"))
	assert.Equal(t, "dev", short("dev"))
}
