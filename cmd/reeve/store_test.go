package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/reeveops/reeve/internal/resolve"
)

func TestStoreEncryptRoundTripsWithPassphrase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "store.yaml")
	dst := filepath.Join(dir, "store.yaml.age")
	require.NoError(t, os.WriteFile(src, []byte("kvconfig:\n  token: \"s3cret\"\n"), 0o600))

	root := newRootCmd(newTestRegistry(t))
	require.NoError(t, executeCommand(root, "store", "encrypt", src, dst, "--passphrase", "open sesame"))

	store, err := resolve.LoadStore(dst, &resolve.Key{Passphrase: "open sesame"})
	require.NoError(t, err)

	token, ok := store.Get("kvconfig", "token")
	require.True(t, ok)
	require.Equal(t, "s3cret", token)
}

func TestStoreEncryptRequiresKeyMaterial(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "store.yaml")
	require.NoError(t, os.WriteFile(src, []byte("a:\n  b: c\n"), 0o600))

	root := newRootCmd(newTestRegistry(t))
	err := executeCommand(root, "store", "encrypt", src, filepath.Join(dir, "out.age"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "--identity or --passphrase")
}

func TestStoreHashPasswordReadsStdin(t *testing.T) {
	root := newRootCmd(newTestRegistry(t))
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader("hunter2\n"))
	root.SetArgs([]string{"store", "hash-password"})

	require.NoError(t, root.Execute())

	hash := strings.TrimSpace(buf.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestStoreHashPasswordRejectsEmpty(t *testing.T) {
	root := newRootCmd(newTestRegistry(t))
	root.SetIn(strings.NewReader("\n"))
	root.SetArgs([]string{"store", "hash-password"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}
