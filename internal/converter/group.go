package converter

import "lexime/internal/dict"

// groupSegments collapses morpheme-level segments into phrase-level segments
// (bunsetsu):
//
//   - FunctionWord / Suffix merge into the preceding group, like a trailing
//     particle.
//   - Prefix starts a new group that absorbs the next content word.
//   - ContentWord merges into a pending prefix group, otherwise starts a
//     new group.
//   - Leading function words or suffixes with no preceding group stay
//     standalone.
func groupSegments(segments []richSegment, conn *dict.ConnectionMatrix) []richSegment {
	if len(segments) <= 1 {
		return segments
	}

	var grouped []richSegment
	var current *richSegment
	pendingPrefix := false

	flush := func() {
		if current != nil {
			grouped = append(grouped, *current)
			current = nil
		}
	}

	for i := range segments {
		seg := segments[i]
		role := conn.Role(seg.LeftID)
		attachToPrev := role == dict.RoleFunction || role == dict.RoleSuffix

		switch {
		case attachToPrev:
			if current != nil {
				current.Reading += seg.Reading
				current.Surface += seg.Surface
				current.RightID = seg.RightID
			} else {
				grouped = append(grouped, seg)
			}

		case role == dict.RolePrefix:
			flush()
			s := seg
			current = &s
			pendingPrefix = true

		default: // content word (incl. non-independent and pronoun roles)
			if pendingPrefix && current != nil {
				current.Reading += seg.Reading
				current.Surface += seg.Surface
				current.RightID = seg.RightID
				pendingPrefix = false
			} else {
				flush()
				s := seg
				current = &s
			}
		}
	}
	flush()

	return grouped
}
