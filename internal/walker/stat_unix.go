//go:build unix

package walker

import (
	"golang.org/x/sys/unix"

	"treels/internal/types"
)

// statIdentity resolves the (device, inode) pair of the node a path points
// at, following symlinks, for cycle detection on the active walk path.
func statIdentity(entryPath string) (identity, bool) {
	var statBuffer unix.Stat_t
	if statError := unix.Stat(entryPath, &statBuffer); statError != nil {
		return identity{}, false
	}
	return identity{device: uint64(statBuffer.Dev), inode: uint64(statBuffer.Ino)}, true
}

// ownerMetadata collects the stat fields backing the inode, device, user,
// and group display columns without following symlinks.
func ownerMetadata(entryPath string) types.OwnerMetadata {
	var statBuffer unix.Stat_t
	if statError := unix.Lstat(entryPath, &statBuffer); statError != nil {
		return types.OwnerMetadata{}
	}
	return types.OwnerMetadata{
		Present: true,
		Inode:   uint64(statBuffer.Ino),
		Device:  uint64(statBuffer.Dev),
		UserID:  statBuffer.Uid,
		GroupID: statBuffer.Gid,
	}
}
