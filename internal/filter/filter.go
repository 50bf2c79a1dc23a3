// Package filter holds the fixed exclusion sets applied while walking a tree.
package filter

import (
	"sort"
	"strings"
)

// excludedDirectoryNames lists directory base names whose subtrees are never walked.
var excludedDirectoryNames = map[string]struct{}{
	"node_modules": {},
	"venv":         {},
	"env":          {},
	"__pycache__":  {},
	".git":         {},
	".next":        {},
	"dist":         {},
	"build":        {},
	"packages":     {},
	".turbo":       {},
	".cache":       {},
}

// excludedFileSuffixes lists file name suffixes that keep a file out of the output.
var excludedFileSuffixes = []string{
	".json",
	".pdf",
	".txt",
}

// IsExcludedDirectory reports whether a directory with the given base name must be pruned.
// The comparison is an exact, case-sensitive match on the name alone.
func IsExcludedDirectory(directoryName string) bool {
	_, excluded := excludedDirectoryNames[directoryName]
	return excluded
}

// IsExcludedFile reports whether the file name ends with one of the excluded suffixes.
func IsExcludedFile(fileName string) bool {
	for _, suffix := range excludedFileSuffixes {
		if strings.HasSuffix(fileName, suffix) {
			return true
		}
	}
	return false
}

// ExcludedDirectoryNames returns a sorted copy of the excluded directory names.
func ExcludedDirectoryNames() []string {
	names := make([]string, 0, len(excludedDirectoryNames))
	for name := range excludedDirectoryNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExcludedFileSuffixes returns a copy of the excluded file suffixes.
func ExcludedFileSuffixes() []string {
	return append([]string(nil), excludedFileSuffixes...)
}
