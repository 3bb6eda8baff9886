package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
)

// SnapshotKind identifies which mirakc list a snapshot holds.
type SnapshotKind string

const (
	SnapshotPrograms SnapshotKind = "programs"
	SnapshotServices SnapshotKind = "services"
)

// Valid reports whether k is a known kind.
func (k SnapshotKind) Valid() bool {
	return k == SnapshotPrograms || k == SnapshotServices
}

// Payload encodings.
const (
	EncodingBrotliJSON = "br+json"
	EncodingJSON       = "json"
)

// Snapshot is one raw list fetched from mirakc. The guide grid is always
// rebuilt from snapshots and never stored itself.
type Snapshot struct {
	BaseModel
	Kind      SnapshotKind `gorm:"type:varchar(16);not null;index:idx_snapshot_kind_fetched,priority:1" json:"kind"`
	Source    string       `gorm:"type:varchar(512);not null" json:"source"`
	FetchedAt time.Time    `gorm:"not null;index:idx_snapshot_kind_fetched,priority:2" json:"fetched_at"`
	ItemCount int          `gorm:"not null" json:"item_count"`
	Encoding  string       `gorm:"type:varchar(16);not null" json:"encoding"`
	Payload   []byte       `gorm:"not null" json:"-"`
}

// TableName returns the table name for snapshots.
func (Snapshot) TableName() string {
	return "snapshots"
}

// Validate checks the snapshot before it is stored.
func (s *Snapshot) Validate() error {
	if !s.Kind.Valid() {
		return ErrInvalidSnapshotKind
	}
	if s.Source == "" {
		return ErrValidation{Field: "source", Message: "is required"}
	}
	if s.FetchedAt.IsZero() {
		return ErrValidation{Field: "fetched_at", Message: "is required"}
	}
	return nil
}

// NewSnapshot encodes items as brotli-compressed JSON.
func NewSnapshot[T any](kind SnapshotKind, source string, fetchedAt time.Time, items []T) (*Snapshot, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if err := json.NewEncoder(w).Encode(items); err != nil {
		return nil, fmt.Errorf("encoding %s snapshot: %w", kind, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing %s snapshot: %w", kind, err)
	}

	return &Snapshot{
		Kind:      kind,
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
		ItemCount: len(items),
		Encoding:  EncodingBrotliJSON,
		Payload:   buf.Bytes(),
	}, nil
}

// DecodeSnapshot decodes the payload of s into a slice of T.
func DecodeSnapshot[T any](s *Snapshot) ([]T, error) {
	var r io.Reader = bytes.NewReader(s.Payload)
	switch s.Encoding {
	case EncodingBrotliJSON:
		r = brotli.NewReader(r)
	case EncodingJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s.Encoding)
	}

	items := make([]T, 0, s.ItemCount)
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding %s snapshot: %w", s.Kind, err)
	}
	return items, nil
}
