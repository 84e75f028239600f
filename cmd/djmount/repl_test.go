package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3mi/djmount-go/internal/registry"
)

func TestREPLListdevOnEmptyRegistry(t *testing.T) {
	var out strings.Builder
	reg := registry.New()
	err := runREPL(strings.NewReader("listdev\nexit\n"), &out, reg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no devices discovered yet")
}

func TestREPLHelpListsAllCommands(t *testing.T) {
	var out strings.Builder
	reg := registry.New()
	err := runREPL(strings.NewReader("help\nexit\n"), &out, reg)
	require.NoError(t, err)
	for _, want := range []string{"loglevel", "listdev", "printdev", "browse", "metadata", "ls", "action", "exit"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestREPLLoglevelRejectsOutOfRange(t *testing.T) {
	var out strings.Builder
	reg := registry.New()
	err := runREPL(strings.NewReader("loglevel 9\nexit\n"), &out, reg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error:")
}

func TestREPLUnknownCommandReportsError(t *testing.T) {
	var out strings.Builder
	reg := registry.New()
	err := runREPL(strings.NewReader("frobnicate\nexit\n"), &out, reg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
}

func TestREPLPrintdevUnknownDeviceReportsError(t *testing.T) {
	var out strings.Builder
	reg := registry.New()
	err := runREPL(strings.NewReader("printdev nosuch\nexit\n"), &out, reg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error:")
}
