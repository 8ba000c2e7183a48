// Package render converts the walker's entry sequence into connector-drawn
// text lines, one per entry, without buffering the tree.
package render

import (
	"fmt"
	"io"
	"os/user"
	"strconv"
	"strings"
	"unicode"

	"treels/internal/types"
	"treels/internal/utils"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	symlinkArrow              = " -> "
	directorySuffix           = "/"
	recursionAnnotation       = " [recursive, not followed]"
	errorOpeningAnnotation    = " [error opening dir]"
	fileLimitAnnotationFormat = " [%d entries exceeds filelimit, not opening dir]"

	unprintableReplacement = '?'
)

// Source is the pull interface the renderer drains, one entry per call,
// nil at the end of the sequence.
type Source interface {
	Next() *types.Entry
}

// Options selects the line layout and the optional metadata columns.
type Options struct {
	// ShowRoot emits a line for the depth-0 entry of each traversal.
	ShowRoot bool
	// FullPath prints each entry's absolute path instead of its base name.
	FullPath bool
	// Classify appends a trailing slash to directory names.
	Classify bool
	// NoIndent drops the connector skeleton, leaving one bare name per line.
	NoIndent bool
	// NoReport suppresses the closing count line.
	NoReport bool

	ShowSize            bool
	HumanSize           bool
	ShowPermissions     bool
	ShowUser            bool
	ShowGroup           bool
	ShowInode           bool
	ShowDevice          bool
	ShowModified        bool
	ReplaceNonPrintable bool
}

// Renderer draws one line per consumed entry, tracking a stack of
// last-sibling flags per open ancestor depth to pick connector glyphs. The
// prefix stack resets at every depth-0 entry; the counters accumulate for
// the renderer's whole lifetime.
type Renderer struct {
	writer     io.Writer
	options    Options
	ancestors  []bool
	summary    types.Summary
	userNames  map[uint32]string
	groupNames map[uint32]string
}

// New constructs a renderer writing to the provided writer.
func New(writer io.Writer, options Options) *Renderer {
	return &Renderer{
		writer:     writer,
		options:    options,
		userNames:  make(map[uint32]string),
		groupNames: make(map[uint32]string),
	}
}

// RenderAll drains the source, emitting one line per entry. The walker has
// no unflushed side effects, so a caller may stop pulling at any time.
func (renderer *Renderer) RenderAll(source Source) error {
	for entry := source.Next(); entry != nil; entry = source.Next() {
		if renderError := renderer.RenderEntry(entry); renderError != nil {
			return renderError
		}
	}
	return nil
}

// RenderEntry draws one entry and folds it into the running counts.
func (renderer *Renderer) RenderEntry(entry *types.Entry) error {
	renderer.count(entry)

	var linePrefix string
	switch {
	case entry.Depth == 0:
		renderer.ancestors = renderer.ancestors[:0]
		if !renderer.options.ShowRoot {
			return nil
		}
	case renderer.options.NoIndent:
	default:
		linePrefix = renderer.prefix(entry)
	}

	_, writeError := fmt.Fprintf(renderer.writer, "%s%s%s\n", linePrefix, renderer.metadataColumns(entry), renderer.describe(entry))
	return writeError
}

// Summary returns the accumulated post-filter counts.
func (renderer *Renderer) Summary() types.Summary {
	return renderer.summary
}

// WriteReport emits the blank separator and the closing count line unless
// suppressed.
func (renderer *Renderer) WriteReport() error {
	return WriteReport(renderer.writer, renderer.summary, renderer.options)
}

// WriteReport emits a closing count line for an externally merged summary,
// used when several root traversals share one report.
func WriteReport(writer io.Writer, summary types.Summary, options Options) error {
	if options.NoReport {
		return nil
	}
	includeSize := options.ShowSize || options.HumanSize
	_, writeError := fmt.Fprintf(writer, "\n%s\n", summary.Report(includeSize, func(totalBytes int64) string {
		if options.HumanSize {
			return utils.FormatSize(totalBytes, true)
		}
		return utils.FormatSize(totalBytes, false) + " bytes"
	}))
	return writeError
}

// count updates the totals. The depth-0 root is structure, not content, and
// stays out of the counts the way tree keeps it out of its report.
func (renderer *Renderer) count(entry *types.Entry) {
	if entry.Depth == 0 {
		return
	}
	if entry.IsDir {
		renderer.summary.Directories++
		return
	}
	renderer.summary.Files++
	renderer.summary.TotalBytes += entry.Size
}

// prefix builds the connector skeleton for one entry and records its
// last-sibling flag for descendants. Ancestors that were last at their level
// leave blank padding; the rest keep a continuation bar.
func (renderer *Renderer) prefix(entry *types.Entry) string {
	if len(renderer.ancestors) > entry.Depth-1 {
		renderer.ancestors = renderer.ancestors[:entry.Depth-1]
	}
	var builder strings.Builder
	for _, ancestorWasLast := range renderer.ancestors {
		if ancestorWasLast {
			builder.WriteString(treeLastPadding)
		} else {
			builder.WriteString(treeBranchPadding)
		}
	}
	if entry.IsLast {
		builder.WriteString(treeLastConnector)
	} else {
		builder.WriteString(treeBranchConnector)
	}
	renderer.ancestors = append(renderer.ancestors, entry.IsLast)
	return builder.String()
}

// describe renders the name segment with its suffixes and annotations.
func (renderer *Renderer) describe(entry *types.Entry) string {
	displayName := entry.Name
	if renderer.options.FullPath {
		displayName = entry.Path
	}
	if renderer.options.ReplaceNonPrintable {
		displayName = replaceNonPrintable(displayName)
	}
	if renderer.options.Classify && entry.IsDir {
		displayName += directorySuffix
	}
	if entry.IsSymlink && entry.LinkTarget != "" {
		displayName += symlinkArrow + entry.LinkTarget
	}
	switch {
	case entry.Err != nil && entry.Err.Kind == types.ErrorKindCycle:
		displayName += recursionAnnotation
	case entry.Err != nil:
		displayName += errorOpeningAnnotation
	case entry.LimitExceeded:
		displayName += fmt.Sprintf(fileLimitAnnotationFormat, entry.ChildCount)
	}
	return displayName
}

// metadataColumns assembles the requested fixed-width fields into a single
// bracketed block before the name, in tree's column order.
func (renderer *Renderer) metadataColumns(entry *types.Entry) string {
	var columns []string
	if renderer.options.ShowInode && entry.Owner.Present {
		columns = append(columns, fmt.Sprintf("%8d", entry.Owner.Inode))
	}
	if renderer.options.ShowDevice && entry.Owner.Present {
		columns = append(columns, fmt.Sprintf("%4d", entry.Owner.Device))
	}
	if renderer.options.ShowPermissions {
		columns = append(columns, entry.Mode.String())
	}
	if renderer.options.ShowUser && entry.Owner.Present {
		columns = append(columns, fmt.Sprintf("%-8s", renderer.userName(entry.Owner.UserID)))
	}
	if renderer.options.ShowGroup && entry.Owner.Present {
		columns = append(columns, fmt.Sprintf("%-8s", renderer.groupName(entry.Owner.GroupID)))
	}
	if renderer.options.ShowSize || renderer.options.HumanSize {
		columns = append(columns, fmt.Sprintf("%7s", utils.FormatSize(entry.Size, renderer.options.HumanSize)))
	}
	if renderer.options.ShowModified {
		columns = append(columns, utils.FormatModified(entry.ModTime))
	}
	if len(columns) == 0 {
		return ""
	}
	return "[" + strings.Join(columns, " ") + "]  "
}

// userName resolves a user id once per renderer, falling back to digits.
func (renderer *Renderer) userName(userID uint32) string {
	if cachedName, known := renderer.userNames[userID]; known {
		return cachedName
	}
	resolvedName := strconv.FormatUint(uint64(userID), 10)
	if account, lookupError := user.LookupId(resolvedName); lookupError == nil && account.Username != "" {
		resolvedName = account.Username
	}
	renderer.userNames[userID] = resolvedName
	return resolvedName
}

// groupName resolves a group id once per renderer, falling back to digits.
func (renderer *Renderer) groupName(groupID uint32) string {
	if cachedName, known := renderer.groupNames[groupID]; known {
		return cachedName
	}
	resolvedName := strconv.FormatUint(uint64(groupID), 10)
	if group, lookupError := user.LookupGroupId(resolvedName); lookupError == nil && group.Name != "" {
		resolvedName = group.Name
	}
	renderer.groupNames[groupID] = resolvedName
	return resolvedName
}

func replaceNonPrintable(name string) string {
	return strings.Map(func(character rune) rune {
		if unicode.IsPrint(character) {
			return character
		}
		return unprintableReplacement
	}, name)
}
