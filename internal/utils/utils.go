// Package utils contains general helper functions used across the combine tool.
package utils

import (
	"path/filepath"
)

// File and directory names shared across the project.
const (
	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = ".combine.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".combine"
	// DefaultOutputFileName is the combined output written when no output path is configured.
	DefaultOutputFileName = "all_code_combined.txt"
	// DefaultRootPath is the tree walked when no root is given.
	DefaultRootPath = "."
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

// RelativePathOrSelf calculates the slash-separated path of fullPath relative to root.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)
	if absolutePath, pathError := filepath.Abs(cleanPath); pathError == nil {
		cleanPath = absolutePath
	}
	if cleanPath == cleanAbsoluteRoot {
		return "."
	}
	relativePath, relativeError := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relativeError != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// AbsoluteCleanPath resolves path to a cleaned absolute form.
func AbsoluteCleanPath(path string) (string, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return "", absoluteError
	}
	return filepath.Clean(absolutePath), nil
}
