package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns ~/.config/countdown/config.yaml (or a cwd fallback).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "countdown", "config.yaml")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "countdown-config.yaml")
}

// DefaultDataDir returns ~/.local/share/countdown (or a cwd fallback).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "countdown")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "countdown-data")
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
