package types_test

import (
	"errors"
	"io/fs"
	"testing"

	"treels/internal/types"
)

func TestWalkErrorFormatting(testingHandle *testing.T) {
	cause := fs.ErrPermission
	walkError := &types.WalkError{Kind: types.ErrorKindPermission, Path: "/r/locked", Err: cause}
	if walkError.Error() != "permission-denied: /r/locked: permission denied" {
		testingHandle.Fatalf("unexpected message: %q", walkError.Error())
	}
	if !errors.Is(walkError, fs.ErrPermission) {
		testingHandle.Fatalf("cause should unwrap")
	}

	bare := &types.WalkError{Kind: types.ErrorKindCycle, Path: "/r/loop"}
	if bare.Error() != "cycle: /r/loop" {
		testingHandle.Fatalf("unexpected message without cause: %q", bare.Error())
	}
}

func TestSummaryAddAndReport(testingHandle *testing.T) {
	var merged types.Summary
	merged.Add(types.Summary{Directories: 1, Files: 2, TotalBytes: 10})
	merged.Add(types.Summary{Directories: 1, Files: 0, TotalBytes: 5})
	if merged.Directories != 2 || merged.Files != 2 || merged.TotalBytes != 15 {
		testingHandle.Fatalf("unexpected merge result: %+v", merged)
	}

	if report := merged.Report(false, nil); report != "2 directories, 2 files" {
		testingHandle.Fatalf("unexpected report: %q", report)
	}
	singular := types.Summary{Directories: 1, Files: 1}
	if report := singular.Report(false, nil); report != "1 directory, 1 file" {
		testingHandle.Fatalf("unexpected singular report: %q", report)
	}
	sized := types.Summary{Directories: 0, Files: 3, TotalBytes: 2048}
	withSize := sized.Report(true, func(totalBytes int64) string { return "2.0K" })
	if withSize != "0 directories, 3 files, 2.0K" {
		testingHandle.Fatalf("unexpected sized report: %q", withSize)
	}
}
