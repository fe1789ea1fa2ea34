// Package snapshot defines the whole-namespace snapshot document and the
// codecs that serialize it.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fruitsalade/memfs/pkg/models"
)

// Version is the document version written by this package.
const Version = 1

var (
	// ErrUnsupportedVersion is returned when decoding a document of another version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrNoSnapshot is returned by stores asked to load before anything was saved.
	ErrNoSnapshot = errors.New("no snapshot saved")
)

// Document is a full export of every drive, in registration order.
type Document struct {
	Version int                  `json:"version" yaml:"version"`
	SavedAt time.Time            `json:"saved_at" yaml:"saved_at"`
	Drives  []*models.EntityNode `json:"drives" yaml:"drives"`
}

// New returns a current-version document holding drives.
func New(drives []*models.EntityNode) *Document {
	return &Document{
		Version: Version,
		SavedAt: time.Now().UTC(),
		Drives:  drives,
	}
}

// Validate checks that the document was written in a supported version.
func (d *Document) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	return nil
}

// Codec encodes and decodes documents.
type Codec interface {
	// Name returns the format identifier ("json", "yaml").
	Name() string
	ContentType() string
	Encode(w io.Writer, doc *Document) error
	Decode(r io.Reader) (*Document, error)
}

// CodecFor returns the codec for a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format: %s", format)
	}
}

// JSONCodec writes indented JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json snapshot: %w", err)
	}
	return nil
}

func (JSONCodec) Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json snapshot: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// YAMLCodec writes YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Name() string        { return "yaml" }
func (YAMLCodec) ContentType() string { return "application/yaml" }

func (YAMLCodec) Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml snapshot: %w", err)
	}
	return nil
}

func (YAMLCodec) Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml snapshot: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
