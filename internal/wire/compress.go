package wire

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

var writerPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestCompression)
		return w
	},
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := writerPool.Get().(*gzip.Writer)
	defer writerPool.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte, limit int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip header: %v", ErrMalformedMessage, err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip body: %v", ErrMalformedMessage, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: payload inflates beyond %d bytes", ErrMalformedMessage, limit)
	}
	return out, nil
}
