package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ManifestFile marks a complete index. It is written last by Build.
const ManifestFile = "index_store.json"

const manifestVersion = 1

var ErrIndexNotFound = errors.New("index not found")

type Manifest struct {
	Version        int                       `json:"version"`
	CreatedAt      time.Time                 `json:"created_at"`
	EmbeddingModel embeddings.EmbeddingModel `json:"embedding_model"`
	Documents      []string                  `json:"documents"`
	ChunkCount     int                       `json:"chunk_count"`
	// Settings is the YAML rendering of the index settings used for the build.
	Settings string `json:"settings"`
}

func ManifestPath(storageDir string) string {
	return filepath.Join(storageDir, ManifestFile)
}

// Exists reports whether storageDir holds a manifest.
func Exists(storageDir string) bool {
	info, err := os.Stat(ManifestPath(storageDir))
	return err == nil && !info.IsDir()
}

func NewManifest(model embeddings.EmbeddingModel, docs []string, chunkCount int, s *settings.IndexSettings) (*Manifest, error) {
	m := &Manifest{
		Version:        manifestVersion,
		CreatedAt:      time.Now().UTC(),
		EmbeddingModel: model,
		Documents:      docs,
		ChunkCount:     chunkCount,
	}
	if s != nil {
		b, err := yaml.Marshal(s)
		if err != nil {
			return nil, errors.Wrap(err, "marshal index settings")
		}
		m.Settings = string(b)
	}
	return m, nil
}

// IndexSettings decodes the settings copy stored in the manifest.
func (m *Manifest) IndexSettings() (*settings.IndexSettings, error) {
	s := &settings.IndexSettings{}
	if m.Settings == "" {
		return s, nil
	}
	if err := yaml.Unmarshal([]byte(m.Settings), s); err != nil {
		return nil, errors.Wrap(err, "unmarshal index settings")
	}
	return s, nil
}

func WriteManifest(storageDir string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	tmp := ManifestPath(storageDir) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write manifest")
	}
	return errors.Wrap(os.Rename(tmp, ManifestPath(storageDir)), "install manifest")
}

func ReadManifest(storageDir string) (*Manifest, error) {
	b, err := os.ReadFile(ManifestPath(storageDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrIndexNotFound, "no %s in %s", ManifestFile, storageDir)
		}
		return nil, errors.Wrap(err, "read manifest")
	}
	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	if m.Version != manifestVersion {
		return nil, errors.Errorf("unsupported index version %d", m.Version)
	}
	return m, nil
}
