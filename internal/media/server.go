// Package media serves uploaded objects from a local directory with HTTP
// Range support and accepts uploads into it.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"podhost/internal/apperr"
	"podhost/internal/mediatype"
	"podhost/internal/respond"
)

const (
	allowMethods  = "GET, HEAD, OPTIONS"
	allowHeaders  = "Content-Type, Range, Content-Range"
	exposeHeaders = "Content-Length, Content-Range, Content-Type"
	cacheControl  = "public, max-age=3600"

	// FilePathPrefix is where objects are mounted on the HTTP router.
	FilePathPrefix = "/uploads/file/"
)

// Server reads and writes objects under a single root directory. It keeps
// no state between requests.
type Server struct {
	root           string
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewServer creates root if needed. maxUploadBytes <= 0 disables the limit.
func NewServer(root string, maxUploadBytes int64, logger *zap.Logger) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{root: abs, maxUploadBytes: maxUploadBytes, logger: logger}, nil
}

// Root returns the absolute uploads directory.
func (s *Server) Root() string { return s.root }

// Resolve returns the on-disk path for key or an InvalidRequest error when
// the key would leave the root.
func (s *Server) Resolve(key string) (string, error) {
	return resolve(s.root, key)
}

// URLPath returns the host-relative URL an object is served at.
func URLPath(key string) string {
	return (&url.URL{Path: FilePathPrefix + key}).EscapedPath()
}

// Open returns an open file and its size for key.
func (s *Server) Open(key string) (*os.File, int64, error) {
	path, err := s.Resolve(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, apperr.NotFound("File not found")
		}
		return nil, 0, apperr.Internal("Failed to serve file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, apperr.Internal("Failed to serve file", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, apperr.NotFound("File not found")
	}
	return f, info.Size(), nil
}

// Get streams the object, honoring a single byte range.
func (s *Server) Get(w http.ResponseWriter, r *http.Request, key string) {
	s.serve(w, r, key, true)
}

// Head answers with the headers Get would send for the full object.
func (s *Server) Head(w http.ResponseWriter, r *http.Request, key string) {
	s.serve(w, r, key, false)
}

// Options answers CORS preflight requests.
func (s *Server) Options(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	setCORS(h)
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, key string, withBody bool) {
	h := w.Header()
	setCORS(h)

	f, size, err := s.Open(key)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			s.logger.Error("open upload", zap.String("key", key), zap.Error(err))
		}
		if !withBody {
			w.WriteHeader(apperr.HTTPStatus(err))
			return
		}
		respond.Error(w, apperr.HTTPStatus(err), apperr.Message(err))
		return
	}
	defer f.Close()

	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", cacheControl)
	h.Set("Content-Type", mediatype.ForName(key))

	rangeHeader := r.Header.Get("Range")
	if !withBody || rangeHeader == "" {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if withBody {
			s.copy(w, f, size, key)
		}
		return
	}

	br, err := parseRange(rangeHeader, size)
	if err != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		h.Del("Content-Type")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if _, err := f.Seek(br.start, io.SeekStart); err != nil {
		s.logger.Error("seek upload", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to serve file")
		return
	}
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.start, br.end, size))
	h.Set("Content-Length", strconv.FormatInt(br.length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	s.copy(w, f, br.length(), key)
}

// copy stops at the first write error, which is how a client disconnect
// shows up; the deferred Close in the caller then releases the file.
func (s *Server) copy(w io.Writer, f io.Reader, n int64, key string) {
	if _, err := io.CopyN(w, f, n); err != nil {
		s.logger.Debug("stream aborted", zap.String("key", key), zap.Error(err))
	}
}

// PutResult is the JSON body of a successful upload.
type PutResult struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	ObjectKey string `json:"objectKey"`
}

// Put writes the request body to key. A failed write leaves whatever was
// already written in place; callers retry with a fresh key.
func (s *Server) Put(w http.ResponseWriter, r *http.Request, key string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	path, err := s.Resolve(key)
	if err != nil {
		respond.Error(w, apperr.HTTPStatus(err), apperr.Message(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error("create upload dir", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	body := r.Body
	if s.maxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	f, err := os.Create(path)
	if err != nil {
		s.logger.Error("create upload", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	written, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.logger.Warn("upload stream failed", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	if err := f.Close(); err != nil {
		s.logger.Error("close upload", zap.String("key", key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	s.logger.Info("upload stored", zap.String("key", key), zap.Int64("bytes", written))
	respond.JSON(w, http.StatusOK, PutResult{Success: true, URL: URLPath(key), ObjectKey: key})
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Expose-Headers", exposeHeaders)
}
