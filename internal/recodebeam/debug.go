package recodebeam

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/recode/internal/unichar"
)

// DebugBeams logs every non-empty heap of timestep t at debug level.
func (s *Search) DebugBeams(t int, charset Charset) {
	b := s.Beam(t)
	if b == nil {
		return
	}
	for index, h := range b.heaps {
		if h.Empty() {
			continue
		}
		slog.Debug("beam heap",
			"t", t,
			"dawg", IsDawgFromBeamIndex(index),
			"cont", ContinuationFromBeamIndex(index).String(),
			"length", LengthFromBeamIndex(index),
			"size", h.Len(),
			"best", describeNode(bestOf(h), charset))
	}
	for c := range numContinuations {
		if n := &b.bestInitialDawgs[c]; n.Code >= 0 {
			slog.Debug("best initial dawg", "t", t, "cont", c.String(), "node", describeNode(n, charset))
		}
	}
}

// DebugPath logs a node path, one line per timestep.
func (s *Search) DebugPath(path []*Node, charset Charset) {
	for t, n := range path {
		slog.Debug("path node", "t", t, "node", describeNode(n, charset))
	}
}

// PathString renders the symbols of a path, marking partial codes with '.'
// and duplicates with '+'.
func PathString(path []*Node, charset Charset) string {
	var sb strings.Builder
	for _, n := range path {
		switch {
		case n.Duplicate:
			sb.WriteByte('+')
		case n.UnicharID == unichar.InvalidID:
			sb.WriteByte('.')
		case charset != nil:
			sb.WriteString(charset.IDToUnichar(n.UnicharID))
		default:
			fmt.Fprintf(&sb, "<%d>", n.UnicharID)
		}
	}
	return sb.String()
}

func bestOf(h *Heap[Node]) *Node {
	var best *Node
	for i := 0; i < h.Len(); i++ {
		if n := h.At(i); best == nil || n.Score > best.Score {
			best = n
		}
	}
	return best
}

func describeNode(n *Node, charset Charset) string {
	if n == nil {
		return "<nil>"
	}
	sym := ""
	if n.UnicharID != unichar.InvalidID && charset != nil {
		sym = fmt.Sprintf("%q ", charset.IDToUnichar(n.UnicharID))
	}
	return sym + n.String()
}
