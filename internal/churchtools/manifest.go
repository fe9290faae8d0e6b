package churchtools

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
)

// Manifest records the BLAKE3 hash of every file last uploaded, so unchanged
// decks can be skipped.
type Manifest struct {
	path  string
	Files map[string]string `json:"files"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{path: path, Files: map[string]string{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest %s", path)
	}
	if m.Files == nil {
		m.Files = map[string]string{}
	}
	return m, nil
}

// HashFile returns the hex BLAKE3 digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Unchanged reports whether name was last uploaded with the given hash.
func (m *Manifest) Unchanged(name, hash string) bool {
	return m.Files[name] == hash
}

// Set records the uploaded hash of name.
func (m *Manifest) Set(name, hash string) {
	m.Files[name] = hash
}

// Names returns the recorded file names in order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the manifest atomically.
func (m *Manifest) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return errors.NewIO("create", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", m.path, err)
	}
	return nil
}
