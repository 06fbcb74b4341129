package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentIDs(t *testing.T) {
	root := filepath.Join("data", "persistent_docs")
	paths := []string{
		filepath.Join(root, "handbook.pdf"),
		filepath.Join(root, "handbook.md"),
		filepath.Join(root, "a", "x.txt"),
		filepath.Join(root, "b", "x.txt"),
	}

	ids, err := documentIDs(root, paths)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		paths[0]: "handbook_pdf",
		paths[1]: "handbook_md",
		paths[2]: "a_x_txt",
		paths[3]: "b_x_txt",
	}, ids)
}

func TestDocumentIDs_RejectsCollisions(t *testing.T) {
	root := "docs"
	_, err := documentIDs(root, []string{
		filepath.Join(root, "a", "x.txt"),
		filepath.Join(root, "a_x.txt"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a_x_txt")
}
