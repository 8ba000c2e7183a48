// Package walker implements the pull-based directory iterator feeding the
// tree renderer. Traversal is depth-first pre-order over an explicit frame
// stack, one frame per open directory, so memory stays proportional to the
// tree depth and symlink cycles can be detected on the active path.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"treels/internal/types"
)

const (
	// errorAbsolutePathFormat is used when the absolute path cannot be determined.
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	// errorNotDirectoryFormat is used when a requested root is not a directory.
	errorNotDirectoryFormat = "%s is not a directory"

	hiddenNamePrefix = "."
)

// Options configures a single traversal. The zero value walks unbounded,
// skips hidden entries, yields files and directories, and orders sibling
// groups by ascending name.
type Options struct {
	// MaxDepth is the deepest emitted level; values below 1 disable the bound.
	MaxDepth int
	// IncludeHidden visits entries whose name starts with a dot.
	IncludeHidden bool
	// DirsOnly suppresses non-directories from the yielded sequence. They
	// are still read so traversal and pruning stay accurate.
	DirsOnly bool
	// MatchPattern keeps only matching files when set. Directories are
	// always kept as structure so deeper matches stay reachable.
	MatchPattern string
	// ExcludePattern drops matching files and directories when set.
	ExcludePattern string
	// FollowSymlinks enters directory symlinks. When false a symlink is a
	// leaf entry carrying its recorded target.
	FollowSymlinks bool
	// SortOrder is one of the types.Sort* constants; empty means ascending.
	SortOrder string
	// DirsFirst places all directories before all files within a sibling
	// group, each group independently ordered by SortOrder.
	DirsFirst bool
	// PruneEmpty drops directories with no surviving file anywhere below.
	PruneEmpty bool
	// FileLimit skips opening directories whose raw entry count exceeds it;
	// values below 1 disable the limit.
	FileLimit int
	// ExtendedMetadata collects inode, device, and ownership per entry.
	ExtendedMetadata bool
}

// identity names a filesystem node independent of the path used to reach it.
type identity struct {
	device uint64
	inode  uint64
}

// frame holds one open directory level: its ordered surviving children and
// the read position within them.
type frame struct {
	entries  []*types.Entry
	index    int
	identity identity
	tracked  bool
}

// Walker yields a finite lazy sequence of entries in pre-order. A Walker is
// single-use; construct a fresh one to re-walk.
type Walker struct {
	options          Options
	pendingRoot      *types.Entry
	frames           []*frame
	activeIdentities map[identity]struct{}
}

// New validates the root path and prepares a traversal. A root that cannot
// be resolved or is not a directory fails here, before any entry is
// produced; all later failures surface as entry-scoped error entries.
func New(rootPath string, options Options) (*Walker, error) {
	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
	}
	rootInfo, rootStatError := os.Stat(absoluteRootPath)
	if rootStatError != nil {
		return nil, classifyError(absoluteRootPath, rootStatError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf(errorNotDirectoryFormat, rootPath)
	}

	rootEntry := &types.Entry{
		Path:    absoluteRootPath,
		Name:    filepath.Base(absoluteRootPath),
		IsDir:   true,
		Size:    rootInfo.Size(),
		Mode:    rootInfo.Mode(),
		ModTime: rootInfo.ModTime(),
	}
	if linkInfo, linkStatError := os.Lstat(absoluteRootPath); linkStatError == nil && linkInfo.Mode()&fs.ModeSymlink != 0 {
		rootEntry.IsSymlink = true
		rootEntry.TargetIsDir = true
		if linkTarget, readLinkError := os.Readlink(absoluteRootPath); readLinkError == nil {
			rootEntry.LinkTarget = linkTarget
		}
	}
	if options.ExtendedMetadata {
		rootEntry.Owner = ownerMetadata(absoluteRootPath)
	}

	walkerInstance := &Walker{options: options, pendingRoot: rootEntry}
	if options.FollowSymlinks {
		walkerInstance.activeIdentities = make(map[identity]struct{})
	}
	return walkerInstance, nil
}

// Next returns the following entry in pre-order, or nil when the traversal
// is exhausted. The root is always the first entry, at depth 0.
func (walkerInstance *Walker) Next() *types.Entry {
	if walkerInstance.pendingRoot != nil {
		rootEntry := walkerInstance.pendingRoot
		walkerInstance.pendingRoot = nil
		if walkerInstance.shouldEnter(rootEntry) {
			walkerInstance.enter(rootEntry)
		}
		return rootEntry
	}
	for len(walkerInstance.frames) > 0 {
		topFrame := walkerInstance.frames[len(walkerInstance.frames)-1]
		if topFrame.index >= len(topFrame.entries) {
			walkerInstance.leave()
			continue
		}
		currentEntry := topFrame.entries[topFrame.index]
		topFrame.index++
		if walkerInstance.shouldEnter(currentEntry) {
			walkerInstance.enter(currentEntry)
		}
		return currentEntry
	}
	return nil
}

// shouldEnter reports whether the entry opens a directory level within the
// depth bound.
func (walkerInstance *Walker) shouldEnter(entry *types.Entry) bool {
	if entry.Err != nil {
		return false
	}
	if !entry.IsDir && !(entry.IsSymlink && entry.TargetIsDir && walkerInstance.options.FollowSymlinks) {
		return false
	}
	return walkerInstance.depthAllows(entry.Depth + 1)
}

func (walkerInstance *Walker) depthAllows(depth int) bool {
	return walkerInstance.options.MaxDepth < 1 || depth <= walkerInstance.options.MaxDepth
}

// enter reads, filters, and orders the children of a directory entry and
// pushes them as a new frame. Failures never abort the walk: they are
// recorded on the entry itself and its subtree is skipped.
func (walkerInstance *Walker) enter(parentEntry *types.Entry) {
	var parentIdentity identity
	identityTracked := false
	if walkerInstance.options.FollowSymlinks {
		if resolvedIdentity, identityKnown := statIdentity(parentEntry.Path); identityKnown {
			if _, alreadyOnPath := walkerInstance.activeIdentities[resolvedIdentity]; alreadyOnPath {
				parentEntry.Err = &types.WalkError{Kind: types.ErrorKindCycle, Path: parentEntry.Path}
				return
			}
			parentIdentity = resolvedIdentity
			identityTracked = true
		}
	}

	directoryEntries, readDirectoryError := os.ReadDir(parentEntry.Path)
	if readDirectoryError != nil {
		parentEntry.Err = classifyError(parentEntry.Path, readDirectoryError)
		return
	}
	if walkerInstance.options.FileLimit > 0 && len(directoryEntries) > walkerInstance.options.FileLimit {
		parentEntry.ChildCount = len(directoryEntries)
		parentEntry.LimitExceeded = true
		return
	}

	survivors := walkerInstance.filterChildren(parentEntry.Path, parentEntry.Depth+1, directoryEntries)
	walkerInstance.orderChildren(survivors)
	if len(survivors) > 0 {
		survivors[len(survivors)-1].IsLast = true
	}

	if identityTracked {
		walkerInstance.activeIdentities[parentIdentity] = struct{}{}
	}
	walkerInstance.frames = append(walkerInstance.frames, &frame{
		entries:  survivors,
		identity: parentIdentity,
		tracked:  identityTracked,
	})
}

// leave pops the finished frame and releases its cycle-detection identity.
func (walkerInstance *Walker) leave() {
	topFrame := walkerInstance.frames[len(walkerInstance.frames)-1]
	if topFrame.tracked {
		delete(walkerInstance.activeIdentities, topFrame.identity)
	}
	walkerInstance.frames = walkerInstance.frames[:len(walkerInstance.frames)-1]
}

// filterChildren applies the hidden, pattern, dirs-only, and prune filters.
// Only survivors take part in ordering and last-sibling flagging, so a
// structurally last child that gets filtered out never influences connector
// placement.
func (walkerInstance *Walker) filterChildren(parentPath string, childDepth int, directoryEntries []os.DirEntry) []*types.Entry {
	var survivors []*types.Entry
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		if !walkerInstance.options.IncludeHidden && strings.HasPrefix(entryName, hiddenNamePrefix) {
			continue
		}
		if walkerInstance.options.ExcludePattern != "" && nameMatches(walkerInstance.options.ExcludePattern, entryName) {
			continue
		}

		childEntry := walkerInstance.newEntry(filepath.Join(parentPath, entryName), entryName, childDepth, directoryEntry)
		if childEntry.Err == nil {
			directoryLike := childEntry.IsDir || childEntry.TargetIsDir
			if !directoryLike {
				if walkerInstance.options.DirsOnly {
					continue
				}
				if walkerInstance.options.MatchPattern != "" && !nameMatches(walkerInstance.options.MatchPattern, entryName) {
					continue
				}
			}
			if childEntry.IsDir && walkerInstance.options.PruneEmpty && !walkerInstance.hasVisibleDescendant(childEntry.Path, childDepth) {
				continue
			}
		}
		survivors = append(survivors, childEntry)
	}
	return survivors
}

// newEntry builds an immutable entry for one directory child.
func (walkerInstance *Walker) newEntry(entryPath string, entryName string, entryDepth int, directoryEntry os.DirEntry) *types.Entry {
	childEntry := &types.Entry{
		Path:  entryPath,
		Name:  entryName,
		Depth: entryDepth,
		IsDir: directoryEntry.IsDir(),
	}
	entryInfo, infoError := directoryEntry.Info()
	if infoError != nil {
		childEntry.Err = classifyError(entryPath, infoError)
		return childEntry
	}
	childEntry.Size = entryInfo.Size()
	childEntry.Mode = entryInfo.Mode()
	childEntry.ModTime = entryInfo.ModTime()
	if entryInfo.Mode()&fs.ModeSymlink != 0 {
		childEntry.IsSymlink = true
		if linkTarget, readLinkError := os.Readlink(entryPath); readLinkError == nil {
			childEntry.LinkTarget = linkTarget
		}
		if targetInfo, targetStatError := os.Stat(entryPath); targetStatError == nil {
			childEntry.TargetIsDir = targetInfo.IsDir()
		}
	}
	if walkerInstance.options.ExtendedMetadata {
		childEntry.Owner = ownerMetadata(entryPath)
	}
	return childEntry
}

// orderChildren sorts a sibling group in place under the active policy.
func (walkerInstance *Walker) orderChildren(siblings []*types.Entry) {
	sortOrder := walkerInstance.options.SortOrder
	if sortOrder == "" {
		sortOrder = types.SortNameAscending
	}
	if sortOrder != types.SortNone {
		sort.SliceStable(siblings, func(leftIndex, rightIndex int) bool {
			left, right := siblings[leftIndex], siblings[rightIndex]
			switch sortOrder {
			case types.SortModified:
				return left.ModTime.Before(right.ModTime)
			case types.SortNameDescending:
				return sortName(right.Name) < sortName(left.Name)
			default:
				return sortName(left.Name) < sortName(right.Name)
			}
		})
	}
	if walkerInstance.options.DirsFirst {
		sort.SliceStable(siblings, func(leftIndex, rightIndex int) bool {
			return directoryLike(siblings[leftIndex]) && !directoryLike(siblings[rightIndex])
		})
	}
}

// hasVisibleDescendant probes whether any surviving file exists below the
// directory within the depth bound. Directories failing the probe read are
// kept so their error surfaces in the output.
func (walkerInstance *Walker) hasVisibleDescendant(directoryPath string, directoryDepth int) bool {
	childDepth := directoryDepth + 1
	if !walkerInstance.depthAllows(childDepth) {
		return false
	}
	directoryEntries, readDirectoryError := os.ReadDir(directoryPath)
	if readDirectoryError != nil {
		return true
	}
	var subdirectories []string
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		if !walkerInstance.options.IncludeHidden && strings.HasPrefix(entryName, hiddenNamePrefix) {
			continue
		}
		if walkerInstance.options.ExcludePattern != "" && nameMatches(walkerInstance.options.ExcludePattern, entryName) {
			continue
		}
		if directoryEntry.IsDir() {
			subdirectories = append(subdirectories, filepath.Join(directoryPath, entryName))
			continue
		}
		if walkerInstance.options.MatchPattern == "" || nameMatches(walkerInstance.options.MatchPattern, entryName) {
			return true
		}
	}
	for _, subdirectoryPath := range subdirectories {
		if walkerInstance.hasVisibleDescendant(subdirectoryPath, childDepth) {
			return true
		}
	}
	return false
}

// sortName strips a single leading dot so hidden entries interleave with
// their visible neighbors, the way tree orders them.
func sortName(entryName string) string {
	return strings.TrimPrefix(entryName, hiddenNamePrefix)
}

func directoryLike(entry *types.Entry) bool {
	return entry.IsDir || entry.TargetIsDir
}

// nameMatches evaluates a glob pattern against a base name; malformed
// patterns match nothing.
func nameMatches(pattern string, entryName string) bool {
	matched, matchError := filepath.Match(pattern, entryName)
	return matchError == nil && matched
}

// classifyError maps a filesystem failure onto the walk error taxonomy.
func classifyError(entryPath string, cause error) *types.WalkError {
	kind := types.ErrorKindIO
	switch {
	case os.IsNotExist(cause):
		kind = types.ErrorKindNotFound
	case os.IsPermission(cause):
		kind = types.ErrorKindPermission
	}
	return &types.WalkError{Kind: kind, Path: entryPath, Err: cause}
}
