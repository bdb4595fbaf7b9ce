package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefix_PlainWhenColorDisabled(t *testing.T) {
	SetColorEnabled(false)
	defer SetColorEnabled(false)

	assert.Equal(t, "[dev] ", Prefix("dev"))
	assert.Equal(t, "[cap] ", Prefix("cap"))
	assert.Equal(t, "[logcat] ", Prefix("logcat"))
	assert.Equal(t, "[cdp] ", Prefix("cdp"))
	assert.Equal(t, "[other] ", Prefix("other"))
}

func TestPrefix_StyledKeepsLabel(t *testing.T) {
	SetColorEnabled(true)
	defer SetColorEnabled(false)

	for _, label := range []string{"dev", "cap", "logcat", "cdp"} {
		got := Prefix(label)
		assert.Contains(t, got, "["+label+"]")
	}
}

func TestWarn(t *testing.T) {
	SetColorEnabled(false)
	assert.Equal(t, "Warning: adb missing", Warn("adb missing"))
}
