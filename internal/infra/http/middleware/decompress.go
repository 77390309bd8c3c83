package middleware

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DecompressConfig bounds request body decompression.
type DecompressConfig struct {
	// MaxDecompressedSize caps the inflated body. Default 50 MiB.
	MaxDecompressedSize int64

	// MaxCompressedSize caps the compressed input. Default 10 MiB.
	MaxCompressedSize int64

	// MaxCompressionRatio rejects bodies that inflate beyond this ratio,
	// which indicates a decompression bomb. Default 100.
	MaxCompressionRatio float64

	// AllowedEncodings lists the accepted Content-Encoding values.
	// Default gzip and zstd.
	AllowedEncodings []string
}

// DefaultDecompressConfig returns the default limits.
func DefaultDecompressConfig() *DecompressConfig {
	return &DecompressConfig{
		MaxDecompressedSize: 50 * 1024 * 1024,
		MaxCompressedSize:   10 * 1024 * 1024,
		MaxCompressionRatio: 100,
		AllowedEncodings:    []string{"gzip", "zstd"},
	}
}

// Decompress inflates gzip and zstd request bodies so downstream decoders
// see plain JSON. Place it before BodyLimit so the limit applies to the
// inflated size. A nil config uses DefaultDecompressConfig.
func Decompress(config *DecompressConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultDecompressConfig()
	}

	allowed := make(map[string]bool, len(config.AllowedEncodings))
	for _, enc := range config.AllowedEncodings {
		allowed[strings.ToLower(enc)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			encoding := strings.ToLower(r.Header.Get("Content-Encoding"))
			if encoding == "" || encoding == "identity" {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed[encoding] {
				http.Error(w, "unsupported Content-Encoding: "+encoding,
					http.StatusUnsupportedMediaType)
				return
			}

			body, err := inflateBody(r.Body, encoding, config)
			if err != nil {
				// Generic message; the error detail could describe our limits
				http.Error(w, "invalid compressed request body", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")

			next.ServeHTTP(w, r)
		})
	}
}

// inflateBody decompresses with bomb protection: the compressed input is
// size-capped up front, and the output is checked incrementally against
// both the absolute cap and the compression ratio.
func inflateBody(body io.ReadCloser, encoding string, config *DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := io.ReadAll(io.LimitReader(body, config.MaxCompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("read compressed body: %w", err)
	}
	if int64(len(compressed)) > config.MaxCompressedSize {
		return nil, fmt.Errorf("compressed size exceeds %d bytes", config.MaxCompressedSize)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var reader io.Reader
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		reader = gr
	case "zstd":
		//nolint:gosec // G115: MaxDecompressedSize is a positive byte count
		zr, err := zstd.NewReader(bytes.NewReader(compressed),
			zstd.WithDecoderMaxMemory(uint64(config.MaxDecompressedSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}

	compressedSize := int64(len(compressed))
	grow := compressedSize * 10
	if grow > config.MaxDecompressedSize {
		grow = config.MaxDecompressedSize
	}

	var out bytes.Buffer
	out.Grow(int(grow))

	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > config.MaxDecompressedSize {
				return nil, fmt.Errorf("decompressed size exceeds %d bytes", config.MaxDecompressedSize)
			}
			if ratio := float64(total) / float64(compressedSize); ratio > config.MaxCompressionRatio {
				return nil, fmt.Errorf("compression ratio %.1f exceeds %.1f", ratio, config.MaxCompressionRatio)
			}
			out.Write(buf[:n])
		}
		if readErr == io.EOF {
			return out.Bytes(), nil
		}
		if readErr != nil {
			return nil, fmt.Errorf("decompress: %w", readErr)
		}
	}
}
