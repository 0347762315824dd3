// Package vectorcache keeps the posting embeddings on disk and in memory and
// recomputes only what the catalog is missing.
package vectorcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const tmpSuffix = ".tmp"

var now = time.Now

// Vectors maps a posting identity to its embedding.
type Vectors map[string][]float32

// Clone returns a shallow copy of the map. Vectors themselves are shared and
// must not be modified in place.
func (v Vectors) Clone() Vectors {
	out := make(Vectors, len(v))
	for id, vec := range v {
		out[id] = vec
	}
	return out
}

// Metadata describes a cache file. It is only used for staleness checks.
type Metadata struct {
	CreatedAt       string `json:"created_at"`
	TotalEmbeddings int    `json:"total_embeddings"`
	EmbeddingModel  string `json:"embedding_model"`
	SourceFileHash  string `json:"source_file_hash,omitempty"`
	SourceFilePath  string `json:"source_file_path,omitempty"`
}

// File is the on-disk layout of the vector cache.
type File struct {
	Metadata   Metadata `json:"metadata"`
	Embeddings Vectors  `json:"embeddings"`
}

type rawFile struct {
	Metadata   Metadata                   `json:"metadata"`
	Embeddings map[string]json.RawMessage `json:"embeddings"`
}

// LoadFile reads a cache file. Entries that are not lists of numbers are kept
// with a nil vector so Validate can report them; a present entry is never
// recomputed by Fill.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}

	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing vectors %s: %w", path, err)
	}

	file := &File{
		Metadata:   raw.Metadata,
		Embeddings: make(Vectors, len(raw.Embeddings)),
	}
	for id, entry := range raw.Embeddings {
		var vec []float32
		if err := json.Unmarshal(entry, &vec); err != nil {
			vec = nil
		}
		file.Embeddings[id] = vec
	}

	return file, nil
}

// Load reads only the vectors of a cache file.
func Load(path string) (Vectors, error) {
	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return file.Embeddings, nil
}

// ReadMetadata reads the metadata block of a cache file.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading vectors: %w", err)
	}

	var head struct {
		Metadata Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Metadata{}, fmt.Errorf("parsing vectors %s: %w", path, err)
	}
	return head.Metadata, nil
}

// Save writes vectors to path with the given metadata. CreatedAt and
// TotalEmbeddings are filled in here. The file is written next to the target
// and renamed over it, so readers never observe a partial file.
func Save(path string, vectors Vectors, meta Metadata) error {
	if vectors == nil {
		vectors = Vectors{}
	}
	meta.CreatedAt = now().Format(time.RFC3339Nano)
	meta.TotalEmbeddings = len(vectors)

	for id, vec := range vectors {
		for _, value := range vec {
			if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
				return fmt.Errorf("vector %q holds a non-finite value", id)
			}
		}
	}

	data, err := json.MarshalIndent(File{Metadata: meta, Embeddings: vectors}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding vectors: %w", err)
	}

	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing vectors: %w", err)
	}

	return nil
}

// Backup copies the vectors stored at src to dst with fresh metadata. The
// model recorded in src is kept.
func Backup(src, dst string) (int, error) {
	file, err := LoadFile(src)
	if err != nil {
		return 0, err
	}

	if err := Save(dst, file.Embeddings, Metadata{EmbeddingModel: file.Metadata.EmbeddingModel}); err != nil {
		return 0, fmt.Errorf("backing up vectors: %w", err)
	}
	return len(file.Embeddings), nil
}

// HashFile returns the hex encoded MD5 digest of the file content. MD5 keeps
// the hash comparable with cache files written by earlier releases.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Exists reports whether path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
