package request

import "net/http"

// ClientWriter wraps a http.ResponseWriter and records the status code that
// was written, so that middleware can report it after the handler returns.
type ClientWriter struct {
	http.ResponseWriter

	// statusCode is the status code that was written to the response.
	statusCode int
}

// NewClientWriter creates a new ClientWriter wrapping w.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader records the status code and forwards it to the wrapped writer.
func (w *ClientWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// StatusCode returns the status code that was written to the response. If no
// status code has been written, http.StatusOK is returned.
func (w *ClientWriter) StatusCode() int {
	return w.statusCode
}
