package concat_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tyemirov/combine/internal/concat"
	"github.com/tyemirov/combine/internal/textdecode"
)

const outputFileName = "combined.out"

type stubCounter struct{}

func (stubCounter) Name() string { return "stub" }

func (stubCounter) CountString(input string) (int, error) { return len(strings.Fields(input)), nil }

// writeTree creates every file in files beneath root, creating parent directories as needed.
func writeTree(testingHandle *testing.T, root string, files map[string]string) {
	testingHandle.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if makeDirError := os.MkdirAll(filepath.Dir(fullPath), 0o755); makeDirError != nil {
			testingHandle.Fatalf("mkdir for %s: %v", relativePath, makeDirError)
		}
		if writeError := os.WriteFile(fullPath, []byte(content), 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", relativePath, writeError)
		}
	}
}

// runCombine runs the concatenator over root, writing outside the tree, and returns the output text.
func runCombine(testingHandle *testing.T, root string, options concat.Options) (string, concat.Summary) {
	testingHandle.Helper()
	options.Root = root
	if options.OutputPath == "" {
		options.OutputPath = filepath.Join(testingHandle.TempDir(), outputFileName)
	}
	summary, runError := concat.Run(options)
	if runError != nil {
		testingHandle.Fatalf("Run error: %v", runError)
	}
	outputBytes, readError := os.ReadFile(options.OutputPath)
	if readError != nil {
		testingHandle.Fatalf("read output: %v", readError)
	}
	return string(outputBytes), summary
}

func record(relativePath, content string) string {
	return concat.FormatRecordHeader(relativePath) + content
}

func TestFormatRecordHeader(testingHandle *testing.T) {
	header := concat.FormatRecordHeader("src/app/main.py")
	if header != "\n\n# ==== src/app/main.py ====\n\n" {
		testingHandle.Fatalf("unexpected header %q", header)
	}
}

func TestRunScenarios(testingHandle *testing.T) {
	testCases := []struct {
		name     string
		files    map[string]string
		expected string
	}{
		{
			name: "excluded dependency directory",
			files: map[string]string{
				"a.py":              "print('a')\n",
				"node_modules/b.py": "print('b')\n",
			},
			expected: record("a.py", "print('a')\n"),
		},
		{
			name: "excluded text extension",
			files: map[string]string{
				"notes.txt": "remember\n",
				"main.go":   "package main\n",
			},
			expected: record("main.go", "package main\n"),
		},
		{
			name: "excluded build output directory",
			files: map[string]string{
				"dist/x.go": "package x\n",
			},
			expected: "",
		},
		{
			name:     "empty root",
			files:    map[string]string{},
			expected: "",
		},
		{
			name: "files before subdirectories in name order",
			files: map[string]string{
				"z.go":     "z",
				"b.go":     "b",
				"a/x.go":   "x",
				"a/c/y.go": "y",
				"c/w.go":   "w",
			},
			expected: record("b.go", "b") + record("z.go", "z") + record("a/x.go", "x") + record("a/c/y.go", "y") + record("c/w.go", "w"),
		},
		{
			name: "content written verbatim",
			files: map[string]string{
				"crlf.bat": "echo on\r\necho off",
				"empty.md": "",
			},
			expected: record("crlf.bat", "echo on\r\necho off") + record("empty.md", ""),
		},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, testCase.files)
			output, summary := runCombine(t, root, concat.Options{})
			if output != testCase.expected {
				t.Fatalf("unexpected output\n got: %q\nwant: %q", output, testCase.expected)
			}
			if summary.Files != strings.Count(testCase.expected, "# ==== ") {
				t.Fatalf("summary reports %d files for output %q", summary.Files, output)
			}
		})
	}
}

// TestRunExclusionCompleteness checks every excluded name at several depths.
func TestRunExclusionCompleteness(testingHandle *testing.T) {
	excludedNames := []string{"node_modules", "venv", "env", "__pycache__", ".git", ".next", "dist", "build", "packages", ".turbo", ".cache"}
	root := testingHandle.TempDir()
	files := map[string]string{"keep/keep.go": "kept"}
	for _, name := range excludedNames {
		files[name+"/top.go"] = "excluded"
		files["src/"+name+"/mid.go"] = "excluded"
		files["src/deep/er/"+name+"/inner/bottom.go"] = "excluded"
	}
	writeTree(testingHandle, root, files)

	output, summary := runCombine(testingHandle, root, concat.Options{})
	if strings.Contains(output, "excluded") {
		testingHandle.Fatalf("output contains content from an excluded directory:\n%s", output)
	}
	if output != record("keep/keep.go", "kept") {
		testingHandle.Fatalf("unexpected output %q", output)
	}
	if summary.Files != 1 {
		testingHandle.Fatalf("expected 1 file, got %d", summary.Files)
	}
}

// TestRunInclusionCompleteness checks that every non-excluded file appears exactly once.
func TestRunInclusionCompleteness(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	included := map[string]string{
		"README.md":             "readme-body",
		"cmd/tool/main.go":      "main-body",
		"web/src/index.ts":      "index-body",
		"web/src/env.ts":        "env-file-body",
		"docs/guide.rst":        "guide-body",
		"build.gradle":          "gradle-body",
		"scripts/.hidden.sh":    "hidden-body",
		"data/report.json.orig": "orig-body",
	}
	excluded := map[string]string{
		"config.json":         "excluded-json",
		"docs/manual.pdf":     "excluded-pdf",
		"web/notes.txt":       "excluded-txt",
		"web/build/bundle.js": "excluded-build",
	}
	writeTree(testingHandle, root, included)
	writeTree(testingHandle, root, excluded)

	output, summary := runCombine(testingHandle, root, concat.Options{})
	for relativePath, content := range included {
		header := "# ==== " + relativePath + " ===="
		if count := strings.Count(output, header); count != 1 {
			testingHandle.Fatalf("expected one header for %s, found %d", relativePath, count)
		}
		if !strings.Contains(output, record(relativePath, content)) {
			testingHandle.Fatalf("record for %s missing or malformed", relativePath)
		}
	}
	for relativePath, content := range excluded {
		if strings.Contains(output, content) || strings.Contains(output, relativePath) {
			testingHandle.Fatalf("excluded file %s leaked into output", relativePath)
		}
	}
	if summary.Files != len(included) {
		testingHandle.Fatalf("expected %d files, got %d", len(included), summary.Files)
	}
	if strings.Count(output, "\n\n# ==== ") != len(included) {
		testingHandle.Fatalf("unexpected number of records in output")
	}
}

func TestRunIsIdempotent(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{
		"one.go":         "1",
		"pkg/two.go":     "2",
		"pkg/a/three.go": "3",
		"vendor/x.go":    "4",
	})
	outputPath := filepath.Join(testingHandle.TempDir(), outputFileName)
	first, _ := runCombine(testingHandle, root, concat.Options{OutputPath: outputPath})
	second, _ := runCombine(testingHandle, root, concat.Options{OutputPath: outputPath})
	if first != second {
		testingHandle.Fatalf("re-run produced different output")
	}
}

func TestRunTruncatesExistingOutput(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{"main.go": "package main"})
	outputPath := filepath.Join(testingHandle.TempDir(), outputFileName)
	if writeError := os.WriteFile(outputPath, []byte(strings.Repeat("stale ", 100)), 0o644); writeError != nil {
		testingHandle.Fatalf("seed output: %v", writeError)
	}
	output, _ := runCombine(testingHandle, root, concat.Options{OutputPath: outputPath})
	if output != record("main.go", "package main") {
		testingHandle.Fatalf("output was not truncated: %q", output)
	}
}

func TestRunRootNamedLikeExcludedDirectoryIsWalked(testingHandle *testing.T) {
	root := filepath.Join(testingHandle.TempDir(), "build")
	writeTree(testingHandle, root, map[string]string{"x.go": "x", "dist/y.go": "y"})
	output, _ := runCombine(testingHandle, root, concat.Options{})
	if output != record("x.go", "x") {
		testingHandle.Fatalf("unexpected output %q", output)
	}
}

func TestRunDecodePolicies(testingHandle *testing.T) {
	testCases := []struct {
		name     string
		policy   textdecode.Policy
		expected string
	}{
		{name: "default drops invalid bytes", policy: "", expected: "caf"},
		{name: "ignore drops invalid bytes", policy: textdecode.PolicyIgnore, expected: "caf"},
		{name: "replace substitutes invalid bytes", policy: textdecode.PolicyReplace, expected: "caf\ufffd"},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, map[string]string{"latin1.c": "caf\xe9"})
			output, _ := runCombine(t, root, concat.Options{Policy: testCase.policy})
			if output != record("latin1.c", testCase.expected) {
				t.Fatalf("unexpected output %q", output)
			}
		})
	}
}

func TestRunSkipsOutputInsideRoot(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{"main.go": "package main"})
	outputPath := filepath.Join(root, "combined.md")

	first, _ := runCombine(testingHandle, root, concat.Options{OutputPath: outputPath})
	second, _ := runCombine(testingHandle, root, concat.Options{OutputPath: outputPath})
	expected := record("main.go", "package main")
	if first != expected || second != expected {
		testingHandle.Fatalf("output file was read back into itself:\nfirst: %q\nsecond: %q", first, second)
	}
}

func TestRunSymbolicLinks(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	outside := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{"main.go": "main"})
	writeTree(testingHandle, outside, map[string]string{"shared.go": "shared", "lib/inner.go": "inner"})

	if linkError := os.Symlink(filepath.Join(outside, "shared.go"), filepath.Join(root, "linked.go")); linkError != nil {
		testingHandle.Skipf("symbolic links unavailable: %v", linkError)
	}
	if linkError := os.Symlink(filepath.Join(outside, "lib"), filepath.Join(root, "lib")); linkError != nil {
		testingHandle.Skipf("symbolic links unavailable: %v", linkError)
	}

	output, _ := runCombine(testingHandle, root, concat.Options{})
	expected := record("linked.go", "shared") + record("main.go", "main")
	if output != expected {
		testingHandle.Fatalf("unexpected output\n got: %q\nwant: %q", output, expected)
	}
}

func TestRunDanglingLinkFailsRun(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{"main.go": "main"})
	if linkError := os.Symlink(filepath.Join(root, "missing.go"), filepath.Join(root, "broken.go")); linkError != nil {
		testingHandle.Skipf("symbolic links unavailable: %v", linkError)
	}
	_, runError := concat.Run(concat.Options{Root: root, OutputPath: filepath.Join(testingHandle.TempDir(), outputFileName)})
	if runError == nil {
		testingHandle.Fatalf("expected dangling link to fail the run")
	}
	if errors.Is(runError, concat.ErrRootUnreachable) {
		testingHandle.Fatalf("dangling link reported as unreachable root: %v", runError)
	}
}

func TestRunUnreadableFileFailsRun(testingHandle *testing.T) {
	if os.Geteuid() == 0 {
		testingHandle.Skip("permission bits are not enforced for root")
	}
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{"locked.go": "secret", "open.go": "open"})
	lockedPath := filepath.Join(root, "locked.go")
	if chmodError := os.Chmod(lockedPath, 0o000); chmodError != nil {
		testingHandle.Fatalf("chmod: %v", chmodError)
	}
	testingHandle.Cleanup(func() { _ = os.Chmod(lockedPath, 0o644) })

	_, runError := concat.Run(concat.Options{Root: root, OutputPath: filepath.Join(testingHandle.TempDir(), outputFileName)})
	if runError == nil {
		testingHandle.Fatalf("expected unreadable file to fail the run")
	}
	if !strings.Contains(runError.Error(), "locked.go") {
		testingHandle.Fatalf("error does not name the file: %v", runError)
	}
}

func TestRunUnreachableRoot(testingHandle *testing.T) {
	scratch := testingHandle.TempDir()
	regularFile := filepath.Join(scratch, "file.go")
	if writeError := os.WriteFile(regularFile, []byte("x"), 0o644); writeError != nil {
		testingHandle.Fatalf("write: %v", writeError)
	}
	testCases := []struct {
		name string
		root string
	}{
		{name: "missing root", root: filepath.Join(scratch, "missing")},
		{name: "root is a file", root: regularFile},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(t *testing.T) {
			outputPath := filepath.Join(t.TempDir(), outputFileName)
			_, runError := concat.Run(concat.Options{Root: testCase.root, OutputPath: outputPath})
			if !errors.Is(runError, concat.ErrRootUnreachable) {
				t.Fatalf("expected ErrRootUnreachable, got %v", runError)
			}
			if _, statError := os.Stat(outputPath); !os.IsNotExist(statError) {
				t.Fatalf("output must not be created for an unreachable root")
			}
		})
	}
}

func TestRunRequiresOutputPath(testingHandle *testing.T) {
	if _, runError := concat.Run(concat.Options{Root: testingHandle.TempDir()}); runError == nil {
		testingHandle.Fatalf("expected error for empty output path")
	}
}

func TestRunMirrorAndSummary(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeTree(testingHandle, root, map[string]string{
		"a.go":     "one two three",
		"b/c.go":   "four five",
		"blob.bin": "\x00\x01\x02",
	})
	var mirror bytes.Buffer
	output, summary := runCombine(testingHandle, root, concat.Options{
		Mirror:       &mirror,
		TokenCounter: stubCounter{},
		TokenModel:   "stub-model",
	})
	if mirror.String() != output {
		testingHandle.Fatalf("mirror diverged from output")
	}
	if summary.Files != 3 {
		testingHandle.Fatalf("expected 3 files, got %d", summary.Files)
	}
	if summary.Bytes != int64(len("one two three")+len("four five")+3) {
		testingHandle.Fatalf("unexpected byte total %d", summary.Bytes)
	}
	if summary.Tokens != 6 {
		testingHandle.Fatalf("expected 6 tokens, got %d", summary.Tokens)
	}
	if summary.Model != "stub-model" {
		testingHandle.Fatalf("expected model to be reported, got %q", summary.Model)
	}
	if summary.Binary != 1 {
		testingHandle.Fatalf("expected 1 binary file, got %d", summary.Binary)
	}
	if !filepath.IsAbs(summary.OutputPath) {
		testingHandle.Fatalf("expected absolute output path, got %s", summary.OutputPath)
	}
}
