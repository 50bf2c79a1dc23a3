package concat

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tyemirov/combine/internal/filter"
	"github.com/tyemirov/combine/internal/utils"
)

const (
	readDirectoryErrorFormat = "reading directory %s: %w"
	resolveLinkErrorFormat   = "resolving symbolic link %s: %w"
)

type entryKind int

const (
	entryOther entryKind = iota
	entryDirectory
	entryFile
	entryLinkedDirectory
)

// FileEntry is a file that passed both exclusion filters and is about to be written.
type FileEntry struct {
	Path         string
	RelativePath string
	Name         string
}

// walker visits a tree top-down. Files of a directory are visited before any of its
// subdirectories, and excluded subdirectories are dropped before they are queued.
type walker struct {
	root     string
	skipPath string
	logger   *zap.Logger
	visit    func(FileEntry) error
}

func (walker *walker) walkDirectory(directoryPath string, entries []fs.DirEntry) error {
	var subdirectories []string
	for _, entry := range entries {
		entryName := entry.Name()
		entryPath := filepath.Join(directoryPath, entryName)
		kind, classifyError := classifyEntry(entryPath, entry)
		if classifyError != nil {
			return classifyError
		}
		switch kind {
		case entryDirectory:
			if filter.IsExcludedDirectory(entryName) {
				walker.logger.Debug("pruned directory", zap.String("path", walker.relative(entryPath)))
				continue
			}
			subdirectories = append(subdirectories, entryPath)
		case entryFile:
			if filter.IsExcludedFile(entryName) {
				walker.logger.Debug("skipped file by extension", zap.String("path", walker.relative(entryPath)))
				continue
			}
			if entryPath == walker.skipPath {
				walker.logger.Debug("skipped output file", zap.String("path", walker.relative(entryPath)))
				continue
			}
			fileEntry := FileEntry{
				Path:         entryPath,
				RelativePath: walker.relative(entryPath),
				Name:         entryName,
			}
			if visitError := walker.visit(fileEntry); visitError != nil {
				return visitError
			}
		case entryLinkedDirectory:
			walker.logger.Debug("not following directory link", zap.String("path", walker.relative(entryPath)))
		default:
			walker.logger.Debug("skipped non-regular file", zap.String("path", walker.relative(entryPath)))
		}
	}

	for _, subdirectoryPath := range subdirectories {
		childEntries, readError := os.ReadDir(subdirectoryPath)
		if readError != nil {
			return fmt.Errorf(readDirectoryErrorFormat, subdirectoryPath, readError)
		}
		if walkError := walker.walkDirectory(subdirectoryPath, childEntries); walkError != nil {
			return walkError
		}
	}
	return nil
}

func (walker *walker) relative(path string) string {
	return utils.RelativePathOrSelf(path, walker.root)
}

// classifyEntry resolves symbolic links once: links to regular files are read as files,
// links to directories are never descended into, and dangling links are an error.
func classifyEntry(entryPath string, entry fs.DirEntry) (entryKind, error) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return entryDirectory, nil
	case mode.IsRegular():
		return entryFile, nil
	case mode&fs.ModeSymlink != 0:
		targetInformation, statError := os.Stat(entryPath)
		if statError != nil {
			return entryOther, fmt.Errorf(resolveLinkErrorFormat, entryPath, statError)
		}
		if targetInformation.IsDir() {
			return entryLinkedDirectory, nil
		}
		if targetInformation.Mode().IsRegular() {
			return entryFile, nil
		}
		return entryOther, nil
	default:
		return entryOther, nil
	}
}
