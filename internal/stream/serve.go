package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const copyBufferSize = 32 * 1024

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

// ContentType maps the container extension to its mime type, defaulting to mp4.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "video/mp4"
}

// Serve writes the file at path as a full (200) or partial (206) response.
//
// Errors returned before anything is written are ErrFileNotFound,
// ErrInvalidRange, *UnsatisfiableError and open/stat failures; the caller owns
// those responses. Errors wrapping ErrAborted happened after headers were
// committed: the response is short of its Content-Length and the connection
// will not be reused.
func Serve(w http.ResponseWriter, r *http.Request, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrFileNotFound
		}
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if st.IsDir() {
		return 0, ErrFileNotFound
	}
	size := st.Size()

	h := w.Header()
	h.Set("Content-Type", ContentType(path))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Disposition", "inline")
	h.Set("Cache-Control", "no-cache")
	h.Set("Cross-Origin-Resource-Policy", "cross-origin")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return 0, nil
		}
		return copySpan(r.Context(), w, io.NewSectionReader(f, 0, size))
	}

	rng, err := ParseRange(rangeHeader, size)
	if err != nil {
		h.Del("Content-Type")
		h.Del("Content-Disposition")
		return 0, err
	}

	h.Set("Content-Range", rng.ContentRange(size))
	h.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return 0, nil
	}
	return copySpan(r.Context(), w, io.NewSectionReader(f, rng.Start, rng.Length()))
}

func copySpan(ctx context.Context, w io.Writer, src io.Reader) (int64, error) {
	n, err := copyContext(ctx, w, src)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return n, nil
}

// copyContext stops between chunks once ctx is done, so a dropped client
// releases the file handle without reading the rest of the span.
func copyContext(ctx context.Context, w io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
