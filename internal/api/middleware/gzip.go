package middleware

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// gzipWriter routes the response body through a gzip stream
type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.gz.Write([]byte(s))
}

func (w *gzipWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

// Gzip compresses responses for clients that accept gzip
func Gzip(level int) gin.HandlerFunc {
	pool := sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(nil, level)
			if err != nil {
				gz = gzip.NewWriter(nil)
			}
			return gz
		},
	}

	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		defer pool.Put(gz)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		original := c.Writer
		c.Writer = &gzipWriter{ResponseWriter: original, gz: gz}

		c.Next()

		gz.Close()
		c.Writer = original
	}
}
