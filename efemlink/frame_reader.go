package efemlink

import (
	"bytes"

	"github.com/arloliu/go-efem/efem"
)

// splitFrames is a bufio.SplitFunc that splits the inbound byte stream into
// frames on the '$' terminator. The terminator is kept in the returned token
// so the parser can verify it.
//
// Frame boundaries never align with read boundaries on a TCP stream, so the
// scanner must produce identical frames no matter how the bytes arrive. A
// partial frame left at EOF is discarded.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, efem.FrameTerminator[0]); i >= 0 {
		return i + 1, data[:i+1], nil
	}

	if atEOF {
		// discard trailing bytes that never formed a frame
		return len(data), nil, nil
	}

	return 0, nil, nil
}
