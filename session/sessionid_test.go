package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChartSessionID_ZeroPadded(t *testing.T) {
	assert.Equal(t, "cs_000000000001", chartSessionID(1))
	assert.Equal(t, "cs_000000000042", chartSessionID(42))
}

func TestQuoteSessionID_ZeroPadded(t *testing.T) {
	assert.Equal(t, "qs_000000000001", quoteSessionID(1))
}

func TestStudyID_StartsAtTwo(t *testing.T) {
	assert.Equal(t, "st2", studyID(0))
	assert.Equal(t, "st3", studyID(1))
	assert.Equal(t, "st4", studyID(2))
}
