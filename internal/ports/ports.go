package ports

import (
	"io"

	"github.com/ShigureLab/danmaku2ass/internal/types"
)

// CommentSource decodes one comment stream into normalized records.
// Implementations skip malformed records and report them through their own
// logging; only unreadable or structurally broken input is an error.
type CommentSource interface {
	// Read parses the stream with baseFontSize as the size-scale reference.
	// Sequence numbers start at firstSeq so records from several files stay
	// totally ordered.
	Read(r io.Reader, baseFontSize float64, firstSeq int) ([]types.Comment, error)
}

// Progress is invoked synchronously during a run with the number of records
// processed so far and the total.
type Progress func(done, total int)
