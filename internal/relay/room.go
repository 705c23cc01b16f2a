// Package relay implements the real-time direct-message core: presence
// tracking, two-party room membership, and the per-connection event protocol.
package relay

import "fmt"

// RoomID returns the canonical room identifier for an unordered pair of
// participants. The same pair always resolves to the same id regardless of
// argument order, and distinct pairs never collide.
func RoomID(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("room_%d_%d", a, b)
}
