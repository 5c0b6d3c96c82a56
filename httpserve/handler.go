// Package httpserve serves a virtual tar archive over HTTP with byte-range support.
package httpserve

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"mime"
	"net/http"
	"time"

	"github.com/nguyengg/rangetar"
)

// Options customises New.
type Options struct {
	// ModTime is reported as Last-Modified and used for If-Modified-Since and If-Range.
	//
	// By default, the zero value is used which omits Last-Modified entirely; conditional requests then rely on the
	// ETag instead.
	ModTime time.Time

	// Observe is called once every request has been served with the status code, the number of body bytes written,
	// and the time taken.
	//
	// By default, nothing is observed.
	Observe func(code int, written int64, elapsed time.Duration)
}

// New returns a http.Handler that serves the archive described by idx as a file named name.
//
// GET and HEAD are supported, including single and multiple byte ranges and conditional requests. Every request reads
// through its own rangetar.Reader so concurrent requests are safe. The ETag is derived from the archive layout (header
// blocks and segment sizes), so it changes whenever a rescan produces a different archive structure.
func New(idx *rangetar.Index, name string, optFns ...func(*Options)) http.Handler {
	opts := &Options{
		Observe: func(int, int64, time.Duration) {},
	}
	for _, fn := range optFns {
		fn(opts)
	}

	return &handler{
		idx:         idx,
		name:        name,
		etag:        ETag(idx),
		disposition: mime.FormatMediaType("attachment", map[string]string{"filename": name}),
		opts:        opts,
	}
}

type handler struct {
	idx               *rangetar.Index
	name              string
	etag, disposition string
	opts              *Options
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &responseWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		h.opts.Observe(rw.code, rw.written, time.Since(start))
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		rw.Header().Set("Allow", "GET, HEAD")
		http.Error(rw, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	hdr := rw.Header()
	hdr.Set("Content-Type", "application/x-tar")
	hdr.Set("ETag", h.etag)
	if h.disposition != "" {
		hdr.Set("Content-Disposition", h.disposition)
	}

	http.ServeContent(rw, r, h.name, h.opts.ModTime, h.idx.NewReader())
}

// ETag returns a strong entity tag derived from the layout of the archive.
//
// Two indices with the same headers and segment sizes get the same tag. Content changes to files that keep their size
// are not detected.
func ETag(idx *rangetar.Index) string {
	hash := sha256.New()
	size := make([]byte, 8)

	for _, s := range idx.Segments() {
		binary.BigEndian.PutUint64(size, uint64(s.Size()))
		_, _ = hash.Write(size)

		if ss, ok := s.(*rangetar.StaticSegment); ok {
			_, _ = hash.Write(ss.Bytes())
		}
	}

	return `"` + hex.EncodeToString(hash.Sum(nil)[:16]) + `"`
}

// responseWriter records the status code and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	code        int
	written     int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code, w.wroteHeader = code, true
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
