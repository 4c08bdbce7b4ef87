// Package trigger decides whether a task's trigger matches a recognition
// snapshot.
package trigger

import "github.com/openhusky/huskyd/internal/models"

// Matches reports whether trigger equals any label in the snapshot.
//
// Matching is exact and case-sensitive. The sensor emits labels with
// user-defined casing, and silently renaming or folding a caller's
// trigger risks false captures, so the burden of "use the exact name"
// stays with the caller. No substring or fuzzy matching.
func Matches(trigger string, snap models.Recognition) bool {
	if trigger == "" {
		return false
	}
	for _, obj := range snap.Objects {
		if obj.Label == trigger {
			return true
		}
	}
	return false
}
