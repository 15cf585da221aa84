// Package qio provides file ingestion and export for frames: CSV,
// Parquet, Arrow IPC, and JSON, built on the Arrow decoders. Decode
// failures surface as ParseError with the offending source attached.
package qio

import (
	"io"
	"os"
	"strings"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
)

// SourceKind discriminates how a source is accessed.
type SourceKind int

const (
	// PathSource is a file on the local filesystem
	PathSource SourceKind = iota
	// StreamSource is an in-memory or already-open byte stream
	StreamSource
	// RemoteSource is a URL. Fetching is a collaborator concern, so
	// readers reject it with a capability error.
	RemoteSource
)

// Source is the tagged variant readers accept. The kind is resolved
// once at entry rather than re-dispatched per call.
type Source struct {
	Kind   SourceKind
	Path   string
	Reader io.Reader
}

// PathOf resolves a path-or-URL string into a Source.
func PathOf(path string) Source {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return Source{Kind: RemoteSource, Path: path}
	}
	return Source{Kind: PathSource, Path: path}
}

// StreamOf wraps an open reader as a Source.
func StreamOf(r io.Reader) Source {
	return Source{Kind: StreamSource, Reader: r}
}

// Label identifies the source in logs and errors.
func (s Source) Label() string {
	switch s.Kind {
	case PathSource, RemoteSource:
		return s.Path
	default:
		return "<stream>"
	}
}

// Open returns a readable stream for the source.
func (s Source) Open() (io.ReadCloser, error) {
	switch s.Kind {
	case PathSource:
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "open "+s.Path)
		}
		return f, nil
	case StreamSource:
		return io.NopCloser(s.Reader), nil
	case RemoteSource:
		return nil, qerrors.Newf(qerrors.ErrorTypeCapability,
			"remote sources are not fetched by the engine: %s", s.Path)
	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeInternal, "unknown source kind %d", s.Kind)
	}
}
