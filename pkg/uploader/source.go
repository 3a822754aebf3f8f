package uploader

import (
	"fmt"
	"io"

	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

// readChunk pulls one planned chunk's bytes out of the source. The
// returned release func returns the buffer to the pool; callers must
// not touch the slice after calling it. Chunk data is read exactly
// once per chunk and shared by every send attempt.
func readChunk(src io.ReaderAt, c Chunk) ([]byte, func(), error) {
	if c.Length == 0 {
		return []byte{}, func() {}, nil
	}

	buf := utils.GetBuffer(int(c.Length))
	n, err := src.ReadAt(buf, c.Offset)
	if int64(n) == c.Length {
		// ReadAt may return io.EOF alongside a full read at the end of
		// the source.
		return buf, func() { utils.PutBuffer(buf) }, nil
	}
	utils.PutBuffer(buf)
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read chunk %d at offset %d: %w", c.Index, c.Offset, err)
	}
	return nil, nil, fmt.Errorf("chunk %d: read %d of %d bytes: %w", c.Index, n, c.Length, ErrSizeMismatch)
}

// chunkCRC computes the CRC-64/NVME checksum carried with each chunk
// so the storage backend can verify the bytes it received.
func chunkCRC(data []byte) uint64 {
	h := utils.Crc64nvmePoolGetHasher()
	defer utils.Crc64nvmePoolPutHasher(h)
	h.Write(data)
	return h.Sum64()
}
