package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServicePathKnowsEveryBinary(t *testing.T) {
	for _, name := range []string{"api", "worker", "notifier"} {
		path, err := servicePath(name)
		require.NoError(t, err)
		assert.Equal(t, "./cmd/"+name, path)
	}
}

func TestServicePathRejectsUnknown(t *testing.T) {
	_, err := servicePath("frontend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service")
}

func TestServiceNamesAreSorted(t *testing.T) {
	assert.Equal(t, []string{"api", "notifier", "worker"}, serviceNames())
}

func TestRootCommandTree(t *testing.T) {
	root := rootCommand()

	subs := make(map[string]bool)
	for _, c := range root.Commands() {
		subs[c.Name()] = true
	}
	assert.True(t, subs["stack"])
	assert.True(t, subs["test"])
	assert.True(t, subs["run"])

	stack, _, err := root.Find([]string{"stack"})
	require.NoError(t, err)
	stackSubs := make(map[string]bool)
	for _, c := range stack.Commands() {
		stackSubs[c.Name()] = true
	}
	assert.True(t, stackSubs["up"])
	assert.True(t, stackSubs["down"])
	assert.True(t, stackSubs["logs"])
	assert.True(t, stackSubs["ps"])
}
