package main

import (
	"os"
	"path/filepath"
)

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".reeve", "history")
	}

	return filepath.Join(home, ".reeve", "history")
}
