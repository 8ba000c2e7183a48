package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treels/internal/types"
)

func runCommand(testingHandle *testing.T, arguments ...string) (string, error) {
	testingHandle.Helper()
	testingHandle.Setenv("HOME", testingHandle.TempDir())
	command := createRootCommand()
	var outputBuffer bytes.Buffer
	command.SetOut(&outputBuffer)
	command.SetErr(io.Discard)
	command.SetArgs(arguments)
	executeError := command.Execute()
	return outputBuffer.String(), executeError
}

func makeFixtureTree(testingHandle *testing.T) string {
	testingHandle.Helper()
	rootDirectory := testingHandle.TempDir()
	if makeDirError := os.Mkdir(filepath.Join(rootDirectory, "a"), 0o755); makeDirError != nil {
		testingHandle.Fatalf("mkdir: %v", makeDirError)
	}
	if writeError := os.WriteFile(filepath.Join(rootDirectory, "b.txt"), []byte("x"), 0o644); writeError != nil {
		testingHandle.Fatalf("write: %v", writeError)
	}
	return rootDirectory
}

// TestCommandListsTree checks the default listing with the root line and the
// closing report.
func TestCommandListsTree(testingHandle *testing.T) {
	rootDirectory := makeFixtureTree(testingHandle)
	output, executeError := runCommand(testingHandle, rootDirectory)
	if executeError != nil {
		testingHandle.Fatalf("Execute: %v", executeError)
	}
	outputLines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if outputLines[0] != filepath.Base(rootDirectory) {
		testingHandle.Fatalf("expected root line %q, got %q", filepath.Base(rootDirectory), outputLines[0])
	}
	if outputLines[1] != "├── a" || outputLines[2] != "└── b.txt" {
		testingHandle.Fatalf("unexpected tree lines: %v", outputLines)
	}
	if outputLines[len(outputLines)-1] != "1 directory, 1 file" {
		testingHandle.Fatalf("unexpected report line: %q", outputLines[len(outputLines)-1])
	}
}

// TestCommandWritesOutputFile checks the file sink.
func TestCommandWritesOutputFile(testingHandle *testing.T) {
	rootDirectory := makeFixtureTree(testingHandle)
	outputPath := filepath.Join(testingHandle.TempDir(), "listing.txt")
	stdoutText, executeError := runCommand(testingHandle, "-o", outputPath, rootDirectory)
	if executeError != nil {
		testingHandle.Fatalf("Execute: %v", executeError)
	}
	if stdoutText != "" {
		testingHandle.Fatalf("stdout should stay empty with -o, got %q", stdoutText)
	}
	fileContent, readError := os.ReadFile(outputPath)
	if readError != nil {
		testingHandle.Fatalf("read output file: %v", readError)
	}
	if !strings.Contains(string(fileContent), "└── b.txt") {
		testingHandle.Fatalf("output file missing listing: %q", string(fileContent))
	}
}

// TestCommandMergesMultipleRoots checks one report across several roots and
// the skip of a missing one.
func TestCommandMergesMultipleRoots(testingHandle *testing.T) {
	firstRoot := makeFixtureTree(testingHandle)
	secondRoot := makeFixtureTree(testingHandle)
	missingRoot := filepath.Join(testingHandle.TempDir(), "absent")

	output, executeError := runCommand(testingHandle, firstRoot, missingRoot, secondRoot)
	if executeError != nil {
		testingHandle.Fatalf("Execute: %v", executeError)
	}
	if reportCount := strings.Count(output, "directories"); reportCount != 1 {
		testingHandle.Fatalf("expected exactly one report, got %d in %q", reportCount, output)
	}
	if !strings.Contains(output, "2 directories, 2 files") {
		testingHandle.Fatalf("expected merged counts, got %q", output)
	}
}

// TestCommandFailsWhenNoRootIsListable checks the all-roots-failed error.
func TestCommandFailsWhenNoRootIsListable(testingHandle *testing.T) {
	missingRoot := filepath.Join(testingHandle.TempDir(), "absent")
	if _, executeError := runCommand(testingHandle, missingRoot); executeError == nil {
		testingHandle.Fatalf("expected error when every root fails")
	}
}

// TestCommandRejectsInvalidLevel checks the explicit level validation.
func TestCommandRejectsInvalidLevel(testingHandle *testing.T) {
	rootDirectory := makeFixtureTree(testingHandle)
	if _, executeError := runCommand(testingHandle, "-L", "0", rootDirectory); executeError == nil {
		testingHandle.Fatalf("expected error for level 0")
	}
}

// TestCommandVersionFlag checks the version short-circuit.
func TestCommandVersionFlag(testingHandle *testing.T) {
	output, executeError := runCommand(testingHandle, "--version")
	if executeError != nil {
		testingHandle.Fatalf("Execute: %v", executeError)
	}
	if !strings.HasPrefix(output, "treels version: ") {
		testingHandle.Fatalf("unexpected version output: %q", output)
	}
}

// TestCommandReadsConfigurationFile checks that file values reach the
// traversal when no flag overrides them.
func TestCommandReadsConfigurationFile(testingHandle *testing.T) {
	rootDirectory := makeFixtureTree(testingHandle)
	configurationPath := filepath.Join(testingHandle.TempDir(), "custom.yaml")
	configurationContent := "display:\n  report: false\n  classify: true\n"
	if writeError := os.WriteFile(configurationPath, []byte(configurationContent), 0o644); writeError != nil {
		testingHandle.Fatalf("write configuration: %v", writeError)
	}

	output, executeError := runCommand(testingHandle, "--config", configurationPath, rootDirectory)
	if executeError != nil {
		testingHandle.Fatalf("Execute: %v", executeError)
	}
	if strings.Contains(output, "directory,") {
		testingHandle.Fatalf("report should be disabled by configuration: %q", output)
	}
	if !strings.Contains(output, "├── a/") {
		testingHandle.Fatalf("classify should come from configuration: %q", output)
	}
}

func TestResolveSortOrder(testingHandle *testing.T) {
	testCases := []struct {
		name           string
		configuredSort string
		flags          walkFlags
		expected       string
		expectError    bool
	}{
		{name: "default ascending", expected: types.SortNameAscending},
		{name: "unsorted flag wins", flags: walkFlags{unsorted: true, modifiedSort: true}, expected: types.SortNone},
		{name: "modified flag beats reverse", flags: walkFlags{modifiedSort: true, reverseSort: true}, expected: types.SortModified},
		{name: "reverse flag", flags: walkFlags{reverseSort: true}, expected: types.SortNameDescending},
		{name: "configured value", configuredSort: types.SortModified, expected: types.SortModified},
		{name: "invalid configured value", configuredSort: "size", expectError: true},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(subTest *testing.T) {
			actual, resolveError := resolveSortOrder(testCase.configuredSort, testCase.flags)
			if testCase.expectError {
				if resolveError == nil {
					subTest.Fatalf("expected error for %q", testCase.configuredSort)
				}
				return
			}
			if resolveError != nil {
				subTest.Fatalf("resolveSortOrder: %v", resolveError)
			}
			if actual != testCase.expected {
				subTest.Fatalf("got %q, want %q", actual, testCase.expected)
			}
		})
	}
}

func TestNormalizeRootPaths(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	duplicatePath := rootDirectory + string(filepath.Separator)
	normalized := normalizeRootPaths([]string{rootDirectory, duplicatePath, rootDirectory})
	if len(normalized) != 1 {
		testingHandle.Fatalf("duplicates should collapse, got %v", normalized)
	}
	if normalized[0] != filepath.Clean(rootDirectory) {
		testingHandle.Fatalf("unexpected normalized path: %q", normalized[0])
	}
}
