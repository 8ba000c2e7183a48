//go:build !unix

package walker

import "treels/internal/types"

// statIdentity reports that node identities are unavailable; symlink cycles
// are then bounded only by the depth limit.
func statIdentity(entryPath string) (identity, bool) {
	return identity{}, false
}

// ownerMetadata reports that the extended stat columns are unavailable.
func ownerMetadata(entryPath string) types.OwnerMetadata {
	return types.OwnerMetadata{}
}
