package dockerengine

import (
	"encoding/binary"
	"io"
)

// demultiplexCopy copies a non-TTY Docker attach/exec stream, stripping the
// 8-byte frame headers (1 stream-type byte, 3 reserved bytes, 4-byte
// big-endian length) that Docker prefixes to every chunk when the container
// was created without a TTY. This is the same framing the teacher's session
// log-stream reader parses in manmanv2/host/session/manager.go.
func demultiplexCopy(dst io.Writer, src io.Reader) (int64, error) {
	var total int64
	header := make([]byte, 8)

	for {
		if _, err := io.ReadFull(src, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return total, nil
			}
			return total, err
		}

		size := binary.BigEndian.Uint32(header[4:8])
		n, err := io.CopyN(dst, src, int64(size))
		total += n
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}
