package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsString(t *testing.T) {
	args := Args{
		"name":    "  checkout  ",
		"count":   float64(42),
		"port":    8080,
		"enabled": true,
	}
	assert.Equal(t, "checkout", args.String("name"))
	assert.Equal(t, "42", args.String("count"))
	assert.Equal(t, "8080", args.String("port"))
	assert.Equal(t, "true", args.String("enabled"))
	assert.Empty(t, args.String("missing"))
	assert.Empty(t, Args{"odd": []string{"x"}}.String("odd"))
}

func TestArgsInt(t *testing.T) {
	args := Args{
		"float":  float64(7.9),
		"int":    3,
		"string": " 12 ",
		"bad":    "twelve",
	}
	assert.Equal(t, 7, args.Int("float", -1))
	assert.Equal(t, 3, args.Int("int", -1))
	assert.Equal(t, 12, args.Int("string", -1))
	assert.Equal(t, -1, args.Int("bad", -1))
	assert.Equal(t, -1, args.Int("missing", -1))
}

func TestArgsInt64(t *testing.T) {
	args := Args{"run_id": "9007199254740993"}
	assert.Equal(t, int64(9007199254740993), args.Int64("run_id", 0))
	assert.Equal(t, int64(5), Args{"n": float64(5)}.Int64("n", 0))
	assert.Equal(t, int64(0), Args{}.Int64("n", 0))
}

func TestArgsTime(t *testing.T) {
	t.Run("rfc3339", func(t *testing.T) {
		ts, found := Args{"at": "2025-06-01T12:00:00Z"}.Time("at")
		require.True(t, found)
		assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), ts)
	})

	t.Run("unix seconds", func(t *testing.T) {
		ts, found := Args{"at": "1748779200"}.Time("at")
		require.True(t, found)
		assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), ts)
	})

	t.Run("unix seconds as number", func(t *testing.T) {
		ts, found := Args{"at": float64(1748779200)}.Time("at")
		require.True(t, found)
		assert.Equal(t, 2025, ts.Year())
	})

	t.Run("absent and unparseable", func(t *testing.T) {
		_, found := Args{}.Time("at")
		assert.False(t, found)
		_, found = Args{"at": "noonish"}.Time("at")
		assert.False(t, found)
	})
}

func TestArgsBool(t *testing.T) {
	assert.True(t, Args{"v": true}.Bool("v"))
	assert.True(t, Args{"v": "Yes"}.Bool("v"))
	assert.True(t, Args{"v": "on"}.Bool("v"))
	assert.True(t, Args{"v": float64(1)}.Bool("v"))
	assert.False(t, Args{"v": "no"}.Bool("v"))
	assert.False(t, Args{"v": float64(0)}.Bool("v"))
	assert.False(t, Args{}.Bool("v"))
}

func TestRequireStrings(t *testing.T) {
	args := Args{"query": "up", "blank": "  "}
	assert.Empty(t, args.requireStrings("query"))
	// Missing keys are reported sorted.
	assert.Equal(t, "missing_required_args:blank,pod", args.requireStrings("pod", "query", "blank"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, clamp(1, 5, 100))
	assert.Equal(t, 100, clamp(1000, 5, 100))
	assert.Equal(t, 42, clamp(42, 5, 100))
}
