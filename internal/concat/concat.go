// Package concat walks a directory tree and writes the text of every included file into a single
// output file, each file preceded by a header naming its path relative to the root.
//
// Directories named in the fixed exclusion set are pruned before they are entered, files whose
// names end with an excluded suffix are skipped, and everything else is decoded best-effort as
// UTF-8 and written verbatim. A file that cannot be read aborts the run.
package concat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tyemirov/combine/internal/textdecode"
	"github.com/tyemirov/combine/internal/tokenizer"
	"github.com/tyemirov/combine/internal/utils"
)

// ErrRootUnreachable marks a root directory that is missing, not a directory, or cannot be listed.
var ErrRootUnreachable = errors.New("root directory unreachable")

const (
	rootUnreachableErrorFormat = "%w: %s: %v"
	rootNotDirectoryMessage    = "not a directory"
	emptyOutputPathMessage     = "output path is empty"
	resolvePathErrorFormat     = "resolving %s: %w"
	createOutputErrorFormat    = "creating output %s: %w"
	closeOutputErrorFormat     = "closing output %s: %w"
	flushOutputErrorFormat     = "writing output %s: %w"
	readFileErrorFormat        = "reading %s: %w"
	writeRecordErrorFormat     = "writing record for %s: %w"
	decodeFileErrorFormat      = "decoding %s: %w"
)

// Options configures a single run.
type Options struct {
	// Root is the directory to walk.
	Root string
	// OutputPath is created or truncated; it is never appended to.
	OutputPath string
	// Policy selects how ill-formed UTF-8 is handled. Empty means textdecode.DefaultPolicy.
	Policy textdecode.Policy
	// TokenCounter, when set, estimates tokens of every written file.
	TokenCounter tokenizer.Counter
	// TokenModel is reported in the summary when tokens were counted.
	TokenModel string
	// Mirror receives a copy of every byte written to the output.
	Mirror io.Writer
	Logger *zap.Logger
}

// Summary describes what a run wrote.
type Summary struct {
	Files  int
	Bytes  int64
	Tokens int
	Model  string
	// Binary counts included files whose leading bytes looked binary.
	Binary int
	// OutputPath is the absolute path of the written file.
	OutputPath string
}

type summaryTracker struct {
	summary Summary
}

func (tracker *summaryTracker) add(contentLength int, tokens int, model string, isBinary bool) {
	tracker.summary.Files++
	tracker.summary.Bytes += int64(contentLength)
	tracker.summary.Tokens += tokens
	if tracker.summary.Model == "" && model != "" && tokens > 0 {
		tracker.summary.Model = model
	}
	if isBinary {
		tracker.summary.Binary++
	}
}

// Run walks options.Root and writes the combined output. The root is validated before the output
// file is created, so an unreachable root leaves no output behind. Any later error may leave a
// partially written output.
func Run(options Options) (summary Summary, err error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := options.Policy
	if policy == "" {
		policy = textdecode.DefaultPolicy
	}
	if options.OutputPath == "" {
		return Summary{}, errors.New(emptyOutputPathMessage)
	}

	rootPath, rootEntries, rootError := openRoot(options.Root)
	if rootError != nil {
		return Summary{}, rootError
	}
	outputPath, outputPathError := utils.AbsoluteCleanPath(options.OutputPath)
	if outputPathError != nil {
		return Summary{}, fmt.Errorf(resolvePathErrorFormat, options.OutputPath, outputPathError)
	}

	// #nosec G304
	outputFile, createError := os.Create(outputPath)
	if createError != nil {
		return Summary{}, fmt.Errorf(createOutputErrorFormat, outputPath, createError)
	}
	defer func() {
		if closeError := outputFile.Close(); closeError != nil && err == nil {
			err = fmt.Errorf(closeOutputErrorFormat, outputPath, closeError)
		}
	}()

	bufferedOutput := bufio.NewWriter(outputFile)
	var destination io.Writer = bufferedOutput
	if options.Mirror != nil {
		destination = io.MultiWriter(bufferedOutput, options.Mirror)
	}
	records := recordWriter{destination: destination}
	tracker := &summaryTracker{summary: Summary{OutputPath: outputPath}}

	logger.Debug("combining tree",
		zap.String("root", rootPath),
		zap.String("output", outputPath),
		zap.String("decode", string(policy)),
	)

	treeWalker := &walker{
		root:     rootPath,
		skipPath: outputPath,
		logger:   logger,
		visit: func(entry FileEntry) error {
			return writeFileRecord(records, entry, policy, options, tracker, logger)
		},
	}
	walkError := treeWalker.walkDirectory(rootPath, rootEntries)

	// what was written before a failure is still flushed, matching a scoped file close
	flushError := bufferedOutput.Flush()
	if walkError != nil {
		return tracker.summary, walkError
	}
	if flushError != nil {
		return tracker.summary, fmt.Errorf(flushOutputErrorFormat, outputPath, flushError)
	}

	logger.Debug("combined tree",
		zap.Int("files", tracker.summary.Files),
		zap.Int64("bytes", tracker.summary.Bytes),
	)
	return tracker.summary, nil
}

// openRoot resolves the root and lists it once, so a root that cannot be walked is reported
// before anything is written.
func openRoot(root string) (string, []fs.DirEntry, error) {
	if root == "" {
		root = utils.DefaultRootPath
	}
	rootPath, absoluteError := utils.AbsoluteCleanPath(root)
	if absoluteError != nil {
		return "", nil, fmt.Errorf(rootUnreachableErrorFormat, ErrRootUnreachable, root, absoluteError)
	}
	rootInformation, statError := os.Stat(rootPath)
	if statError != nil {
		return "", nil, fmt.Errorf(rootUnreachableErrorFormat, ErrRootUnreachable, root, statError)
	}
	if !rootInformation.IsDir() {
		return "", nil, fmt.Errorf(rootUnreachableErrorFormat, ErrRootUnreachable, root, rootNotDirectoryMessage)
	}
	rootEntries, readError := os.ReadDir(rootPath)
	if readError != nil {
		return "", nil, fmt.Errorf(rootUnreachableErrorFormat, ErrRootUnreachable, root, readError)
	}
	return rootPath, rootEntries, nil
}

func writeFileRecord(records recordWriter, entry FileEntry, policy textdecode.Policy, options Options, tracker *summaryTracker, logger *zap.Logger) error {
	if headerError := records.writeHeader(entry.RelativePath); headerError != nil {
		return fmt.Errorf(writeRecordErrorFormat, entry.RelativePath, headerError)
	}

	// #nosec G304
	fileBytes, readError := os.ReadFile(entry.Path)
	if readError != nil {
		return fmt.Errorf(readFileErrorFormat, entry.RelativePath, readError)
	}
	isBinary := utils.IsBinary(fileBytes)
	if isBinary {
		logger.Warn("included file looks binary; writing best-effort text", zap.String("path", entry.RelativePath))
	}

	content, decodeError := textdecode.Decode(policy, fileBytes)
	if decodeError != nil {
		return fmt.Errorf(decodeFileErrorFormat, entry.RelativePath, decodeError)
	}
	if contentError := records.writeContent(content); contentError != nil {
		return fmt.Errorf(writeRecordErrorFormat, entry.RelativePath, contentError)
	}

	tokens := 0
	if options.TokenCounter != nil {
		countResult, countError := tokenizer.CountText(options.TokenCounter, content)
		if countError != nil {
			logger.Warn("token count failed", zap.String("path", entry.RelativePath), zap.Error(countError))
		} else if countResult.Counted {
			tokens = countResult.Tokens
		}
	}
	tracker.add(len(content), tokens, options.TokenModel, isBinary)
	logger.Debug("wrote file", zap.String("path", entry.RelativePath), zap.Int("bytes", len(content)))
	return nil
}
