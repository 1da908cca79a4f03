package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/bridgeclaw/cmd/bridgeclaw/internal"
)

func TestNewBridgeclawCommand(t *testing.T) {
	cmd := NewBridgeclawCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "bridgeclaw", cmd.Use)
	assert.Contains(t, cmd.Short, internal.GetVersion())

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "version")
}
