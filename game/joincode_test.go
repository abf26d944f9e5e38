package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateJoinCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateJoinCode()
		assert.True(t, ValidJoinCode(code), code)
	}
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeJoinCode("  abc234 "))
	assert.False(t, ValidJoinCode("ABC10O"))
	assert.False(t, ValidJoinCode("ABC"))
}
