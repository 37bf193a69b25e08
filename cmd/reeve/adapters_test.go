package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdaptersCommandListsRegisteredAdapters(t *testing.T) {
	root := newRootCmd(newTestRegistry(t))
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"adapters"})

	require.NoError(t, root.Execute())

	out := buf.String()
	for _, name := range []string{"service", "kvconfig", "repo", "asg", "s3bucket"} {
		require.Contains(t, out, name)
	}
}
