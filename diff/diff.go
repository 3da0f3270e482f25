// Package diff detects line-level changes between two document
// versions. It is a cheap prefix/suffix scan, not a minimal
// edit-distance algorithm: each differing line yields exactly one
// replace record covering the changed column range.
package diff

import (
	"time"

	"synctext/datamodel/update"
)

// Lines compares the previous and current line sequences and returns
// one Update per differing line, stamped at now and attributed to
// userID. The detector is stateless: callers own the baseline and must
// pass the correct prior version on each invocation.
func Lines(old, cur []string, userID string, now time.Time) []update.Update {
	maxN := len(old)
	if len(cur) > maxN {
		maxN = len(cur)
	}

	var updates []update.Update
	for i := 0; i < maxN; i++ {
		oldLine := ""
		if i < len(old) {
			oldLine = old[i]
		}
		newLine := ""
		if i < len(cur) {
			newLine = cur[i]
		}
		if oldLine == newLine {
			continue
		}

		// Common prefix.
		startCol := 0
		minLen := len(oldLine)
		if len(newLine) < minLen {
			minLen = len(newLine)
		}
		for startCol < minLen && oldLine[startCol] == newLine[startCol] {
			startCol++
		}

		// Shrink matching suffixes, never crossing the prefix.
		oldEnd := len(oldLine)
		newEnd := len(newLine)
		for oldEnd-1 >= startCol && newEnd-1 >= startCol &&
			oldLine[oldEnd-1] == newLine[newEnd-1] {
			oldEnd--
			newEnd--
		}

		oldPart := ""
		if startCol < oldEnd {
			oldPart = oldLine[startCol:oldEnd]
		}
		newPart := ""
		if startCol < newEnd {
			newPart = newLine[startCol:newEnd]
		}
		if oldPart == newPart {
			// Equal spans carry no real change.
			continue
		}

		endCol := oldEnd
		if newEnd > endCol {
			endCol = newEnd
		}
		updates = append(updates, update.NewReplace(
			int32(i), int32(startCol), int32(endCol), oldPart, newPart, userID, now))
	}

	return updates
}
