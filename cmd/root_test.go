package cmd

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	var names []string
	for _, cmd := range newRootCommand().Commands() {
		names = append(names, cmd.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"config", "sync", "version", "watch"}, names)
}
