package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads every YAML form descriptor in dir.
func Load(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFS walks fsys and registers one form per YAML file, in lexical file
// order. A filesystem without descriptors is an error.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{byID: make(map[string]*Form)}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDescriptor(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}

		var form Form
		if err := yaml.Unmarshal(data, &form); err != nil {
			return fmt.Errorf("schema: parse %s: %w", path, err)
		}
		return store.add(form, path)
	})
	if err != nil {
		return nil, err
	}
	if len(store.forms) == 0 {
		return nil, fmt.Errorf("schema: no form descriptors found")
	}
	return store, nil
}

func isDescriptor(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
