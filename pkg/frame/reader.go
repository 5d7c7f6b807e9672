package frame

import (
	"errors"
	"fmt"
	"io"
)

// Reader pulls fixed-size frames of signed little-endian 16-bit PCM off a
// byte stream. A short final read is zero-padded to a full frame; the call
// after it reports io.EOF. A frame returned by Next is always exactly the
// configured length.
type Reader struct {
	r    io.Reader
	buf  []byte
	done bool
}

// NewReader returns a Reader producing frames of samples 16-bit samples each.
func NewReader(r io.Reader, samples int) *Reader {
	return &Reader{r: r, buf: make([]byte, samples*2)}
}

// Next blocks until a full frame is available or the stream ends. It returns
// io.EOF once the stream is exhausted; a stream ending mid-frame yields one
// final zero-padded frame first.
func (fr *Reader) Next() ([]int16, error) {
	if fr.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(fr.r, fr.buf)
	switch {
	case err == io.EOF:
		fr.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		fr.done = true
		for i := n; i < len(fr.buf); i++ {
			fr.buf[i] = 0
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return decodePCM(fr.buf), nil
}

func decodePCM(b []byte) []int16 {
	var pcm = make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
