package envelope

import (
	"bytes"
	"net/http"
)

// bufferWriter holds the handler response until it has been inspected.
// Headers go straight to the underlying writer's header map.
type bufferWriter struct {
	w      http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (b *bufferWriter) Header() http.Header {
	return b.w.Header()
}

func (b *bufferWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.buf.Write(p)
}

func (b *bufferWriter) Status() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

// trackingWriter passes writes through and remembers whether any were made
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.wrote = true
	return t.ResponseWriter.Write(p)
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.wrote = true
		f.Flush()
	}
}

func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
