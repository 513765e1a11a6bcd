package dlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledGatesOutput(t *testing.T) {
	orig := Enabled
	defer func() { Enabled = orig }()

	Enabled = false
	assert.NotPanics(t, func() { Printf("quiet %d", 1) })
	assert.NotPanics(t, func() { Println("quiet") })

	Enabled = true
	assert.NotPanics(t, func() { Printf("loud %d", 1) })
}

func TestEventLogsUnconditionally(t *testing.T) {
	orig := Enabled
	defer func() { Enabled = orig }()
	Enabled = false
	assert.NotPanics(t, func() { Event(1, "halted: %s", "reason") })
}
