// File: internal/network/compression.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised on requests that do not set their own.
const acceptEncoding = "br, gzip, deflate"

var (
	gzipReaderPool = sync.Pool{
		New: func() interface{} { return new(gzip.Reader) },
	}
	brotliReaderPool = sync.Pool{
		New: func() interface{} { return brotli.NewReader(nil) },
	}
)

// emptyReader resets pooled readers without holding on to the last body.
var emptyReader = strings.NewReader("")

// CompressionMiddleware is an http.RoundTripper that negotiates compression
// and transparently decodes gzip, deflate (zlib or raw) and brotli bodies.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport, defaulting to http.DefaultTransport.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

// RoundTrip implements http.RoundTripper.
func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

// closeWrapper closes the decoder and the original body, returning pooled
// decoders on the way.
type closeWrapper struct {
	io.ReadCloser
	originalBody io.ReadCloser
	release      func()
}

func (w *closeWrapper) Close() error {
	if w.release != nil {
		w.release()
		w.release = nil
	}
	err1 := w.ReadCloser.Close()
	err2 := w.originalBody.Close()
	return errors.Join(err1, err2)
}

// DecompressResponse wraps resp.Body with decoders for every Content-Encoding
// layer, applied in reverse order. On success the encoding and length headers
// are removed. On error the body may be partially consumed and should be
// discarded.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}

	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	for i := len(encodings) - 1; i >= 0; i-- {
		for _, layer := range reverse(strings.Split(encodings[i], ",")) {
			if err := wrapLayer(resp, strings.ToLower(strings.TrimSpace(layer))); err != nil {
				return err
			}
		}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

func wrapLayer(resp *http.Response, encoding string) error {
	var reader io.ReadCloser
	var release func()

	switch encoding {
	case "gzip", "x-gzip":
		zr := gzipReaderPool.Get().(*gzip.Reader)
		if err := zr.Reset(resp.Body); err != nil {
			gzipReaderPool.Put(zr)
			return fmt.Errorf("gzip initialization error: %w", err)
		}
		reader = zr
		release = func() {
			_ = zr.Reset(emptyReader)
			gzipReaderPool.Put(zr)
		}

	case "deflate":
		fr, err := tryDeflate(resp.Body)
		if err != nil {
			return fmt.Errorf("deflate initialization error: %w", err)
		}
		reader = fr

	case "br":
		br := brotliReaderPool.Get().(*brotli.Reader)
		if err := br.Reset(resp.Body); err != nil {
			brotliReaderPool.Put(br)
			return fmt.Errorf("brotli initialization error: %w", err)
		}
		reader = io.NopCloser(br)
		release = func() {
			_ = br.Reset(emptyReader)
			brotliReaderPool.Put(br)
		}

	case "identity", "":
		return nil

	default:
		return fmt.Errorf("unsupported Content-Encoding layer: %s", encoding)
	}

	resp.Body = &closeWrapper{
		ReadCloser:   reader,
		originalBody: resp.Body,
		release:      release,
	}
	return nil
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// rewindReader replays the bytes read so far so a second decoder can start
// over after the first one rejected the stream.
type rewindReader struct {
	r      io.Reader
	buf    *bytes.Buffer
	source io.Reader
}

func newRewindReader(r io.Reader) *rewindReader {
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	return &rewindReader{r: io.TeeReader(r, buf), buf: buf, source: r}
}

func (rr *rewindReader) Read(p []byte) (int, error) { return rr.r.Read(p) }

func (rr *rewindReader) rewind() {
	rr.r = io.MultiReader(bytes.NewReader(rr.buf.Bytes()), rr.source)
}

// tryDeflate decodes zlib-wrapped deflate and falls back to raw deflate.
func tryDeflate(r io.Reader) (io.ReadCloser, error) {
	rr := newRewindReader(r)
	if zr, err := zlib.NewReader(rr); err == nil {
		return zr, nil
	}
	rr.rewind()
	return flate.NewReader(rr), nil
}
