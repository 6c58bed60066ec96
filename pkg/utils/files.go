// Package utils holds the path and archive helpers shared by the machines
// and frontends.
package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotAFile is returned when a ROM path names a directory.
var ErrNotAFile = errors.New("not a regular file")

const stateDirName = "states"

// GetPathInfo resolves relPath to an absolute path and its directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// ResolveROM returns the absolute path of an existing ROM file.
func ResolveROM(path string) (string, error) {
	fullPath, _, err := GetPathInfo(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("rom: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("rom %s: %w", fullPath, ErrNotAFile)
	}
	return fullPath, nil
}

// StateDir returns the save-state directory kept beside a ROM.
func StateDir(romPath string) (string, error) {
	_, parentDir, err := GetPathInfo(romPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(parentDir, stateDirName), nil
}

// IsBytePusherROM reports whether the file extension marks a BytePusher
// program.
func IsBytePusherROM(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bp", ".bytepusher":
		return true
	}
	return false
}

// OutputPath derives an output file name from in by replacing its extension.
func OutputPath(in, ext string) string {
	old := filepath.Ext(in)
	if old == "" {
		return in + ext
	}
	return strings.TrimSuffix(in, old) + ext
}
