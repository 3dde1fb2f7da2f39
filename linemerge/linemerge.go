// Package linemerge implements the line-based diff3 fallback merge
// (spec.md §4.11): used both by the COMMENT_CONTENT content-conflict
// handler and by sporktree as the fallback for a conflict region it cannot
// resolve structurally.
//
// Line diffing uses the DiffLinesToChars → DiffMain → DiffCharsToLines
// idiom so diffmatchpatch operates over whole lines instead of runes.
package linemerge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	markerLeftStart = "<<<<<<< LEFT"
	markerBase      = "||||||| BASE"
	markerMid       = "======="
	markerRightEnd  = ">>>>>>> RIGHT"
)

// Merge performs a line-based three-way merge of base/left/right. It
// returns the merged text and whether any conflict markers were emitted.
// base may be empty with no special meaning beyond "no lines" — callers
// that have no BASE revision at all should still pass "" and accept that a
// left/right disagreement will conflict rather than silently pick a side.
func Merge(base, left, right string) (string, bool) {
	if left == right {
		return left, false
	}

	baseLines := splitLines(base)
	leftKept, leftInsBefore := alignToBase(base, left, len(baseLines))
	rightKept, rightInsBefore := alignToBase(base, right, len(baseLines))

	var out []string
	conflicted := false

	for i := 0; i <= len(baseLines); i++ {
		li := leftInsBefore[i]
		ri := rightInsBefore[i]

		switch {
		case linesEqual(li, ri):
			out = append(out, li...)
		case len(li) == 0:
			out = append(out, ri...)
		case len(ri) == 0:
			out = append(out, li...)
		default:
			conflicted = true
			out = append(out, markerLeftStart)
			out = append(out, li...)
			out = append(out, markerMid)
			out = append(out, ri...)
			out = append(out, markerRightEnd)
		}

		if i == len(baseLines) {
			break
		}
		if leftKept[i] && rightKept[i] {
			out = append(out, baseLines[i])
		}
	}

	return strings.Join(out, "\n"), conflicted
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// alignToBase diffs base against other in line mode and returns, for each
// base line index, whether that side kept it unchanged (kept[i]), plus the
// lines that side inserted immediately before base line i (insBefore[i],
// with insBefore[len(baseLines)] holding any trailing insertion).
func alignToBase(base, other string, baseLen int) ([]bool, [][]string) {
	kept := make([]bool, baseLen)
	insBefore := make([][]string, baseLen+1)

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(base, other)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	baseIdx := 0
	for _, d := range diffs {
		lines := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for range lines {
				if baseIdx < baseLen {
					kept[baseIdx] = true
					baseIdx++
				}
			}
		case diffmatchpatch.DiffDelete:
			for range lines {
				if baseIdx < baseLen {
					kept[baseIdx] = false
					baseIdx++
				}
			}
		case diffmatchpatch.DiffInsert:
			insBefore[baseIdx] = append(insBefore[baseIdx], lines...)
		}
	}

	return kept, insBefore
}

// splitDiffLines splits a diffmatchpatch line-mode chunk back into
// individual lines, dropping the single trailing empty element Split
// produces for chunks that end in "\n" (every line-mode chunk does, except
// possibly the very last one in the document).
func splitDiffLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
