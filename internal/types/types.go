// Package types defines the data structures shared by the treels packages.
package types

import (
	"fmt"
	"io/fs"
	"time"
)

// Sort orders accepted by the walker.
const (
	SortNameAscending  = "name"
	SortNameDescending = "name-desc"
	SortModified       = "mtime"
	SortNone           = "none"
)

// ErrorKind classifies an entry-scoped traversal failure.
type ErrorKind string

const (
	ErrorKindPermission ErrorKind = "permission-denied"
	ErrorKindIO         ErrorKind = "io"
	ErrorKindCycle      ErrorKind = "cycle"
	ErrorKindNotFound   ErrorKind = "not-found"
)

// WalkError records a traversal failure scoped to a single path. A WalkError
// attached to an Entry aborts only the subtree rooted at that entry.
type WalkError struct {
	Kind ErrorKind
	Path string
	Err  error
}

// Error formats the failure with its kind and path.
func (walkError *WalkError) Error() string {
	if walkError.Err != nil {
		return fmt.Sprintf("%s: %s: %v", walkError.Kind, walkError.Path, walkError.Err)
	}
	return fmt.Sprintf("%s: %s", walkError.Kind, walkError.Path)
}

// Unwrap exposes the underlying cause.
func (walkError *WalkError) Unwrap() error {
	return walkError.Err
}

// OwnerMetadata carries platform stat fields collected only when requested.
// Present is false on platforms without the required stat support.
type OwnerMetadata struct {
	Present bool
	Inode   uint64
	Device  uint64
	UserID  uint32
	GroupID uint32
}

// Entry is one filesystem node discovered during traversal. Entries are
// constructed by the walker, immutable afterwards, and consumed exactly once
// by the renderer.
type Entry struct {
	// Path is the absolute location of the node.
	Path string
	// Name is the base name used for display and sorting.
	Name string
	// Depth is the distance from the walk root; the root itself is 0.
	Depth int
	// IsDir reports whether the node itself (not a symlink target) is a directory.
	IsDir bool
	// IsSymlink reports whether the node is a symbolic link.
	IsSymlink bool
	// LinkTarget is the unresolved symlink target; empty for non-links.
	LinkTarget string
	// TargetIsDir reports whether a symlink resolves to a directory.
	TargetIsDir bool
	// IsLast is true when this entry is the final surviving child of its
	// parent after all filters and ordering were applied.
	IsLast bool

	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	Owner   OwnerMetadata

	// Err marks the entry as a failure node; its subtree was not entered.
	Err *WalkError

	// ChildCount and LimitExceeded annotate a directory whose raw entry
	// count exceeded the configured file limit and was therefore not opened.
	ChildCount    int
	LimitExceeded bool
}

// Summary aggregates counts across one or more rendered traversals.
type Summary struct {
	Directories int
	Files       int
	TotalBytes  int64
}

// Add merges another summary into the receiver.
func (summary *Summary) Add(other Summary) {
	summary.Directories += other.Directories
	summary.Files += other.Files
	summary.TotalBytes += other.TotalBytes
}

// Report renders the classic closing report line. The size segment is
// appended only when the caller supplies a formatter for it.
func (summary Summary) Report(includeSize bool, sizeFormatter func(int64) string) string {
	directoryLabel := "directories"
	if summary.Directories == 1 {
		directoryLabel = "directory"
	}
	fileLabel := "files"
	if summary.Files == 1 {
		fileLabel = "file"
	}
	report := fmt.Sprintf("%d %s, %d %s", summary.Directories, directoryLabel, summary.Files, fileLabel)
	if includeSize && sizeFormatter != nil {
		report += ", " + sizeFormatter(summary.TotalBytes)
	}
	return report
}
