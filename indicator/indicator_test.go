package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestBuild_ValidJSON(t *testing.T) {
	payload := Build("opaque-text", "PUB;abc", "1.0",
		IntInput("in_0", 20),
		SourceInput("in_1", "close"),
	)

	v, err := fastjson.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, "opaque-text", string(v.GetStringBytes("text")))
	assert.Equal(t, "PUB;abc", string(v.GetStringBytes("pineId")))
	assert.Equal(t, "1.0", string(v.GetStringBytes("pineVersion")))
	assert.Equal(t, int64(20), v.Get("in_0").GetInt64("v"))
	assert.Equal(t, "integer", string(v.GetStringBytes("in_0", "t")))
	assert.True(t, v.Get("in_0").GetBool("f"))
	assert.Equal(t, "close", string(v.GetStringBytes("in_1", "v")))
	assert.Equal(t, "source", string(v.GetStringBytes("in_1", "t")))
}

func TestBuild_DefaultsPositionalName(t *testing.T) {
	payload := Build("t", "p", "1.0", IntInput("", 5))
	v, err := fastjson.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Get("in_0").GetInt64("v"))
}

func TestVWAPMVWAPEMACrossover_ValidJSON(t *testing.T) {
	payload := VWAPMVWAPEMACrossover(20, "close", 9, "hlc3", 21, 70, 30, 14)
	v, err := fastjson.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, "PUB;N16MOYK6AEJGGAoy40axs0S48GRFYcNn", string(v.GetStringBytes("pineId")))
	assert.Equal(t, int64(20), v.Get("in_0").GetInt64("v"))
	assert.Equal(t, "close", string(v.GetStringBytes("in_1", "v")))
	assert.Equal(t, int64(14), v.Get("in_7").GetInt64("v"))
}
