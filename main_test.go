package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"latest", "analyze", "trend", "export", "import", "seed", "serve", "version"}, names)

	for _, flag := range []string{"config", "log-level", "store", "dsn", "history-file"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}
