package config

import (
	"path/filepath"

	yaml "github.com/goccy/go-yaml"
)

// CfgPath is a path from a config file. Relative paths are taken relative
// to the directory of that file.
type CfgPath string

// UnmarshalBase is the directory relative paths resolve against. Parse sets
// it before decoding.
var UnmarshalBase string

func (c *CfgPath) UnmarshalYAML(b []byte) error {
	var path string
	if err := yaml.Unmarshal(b, &path); err != nil {
		return err
	}
	*c = CfgPath(resolvePath(UnmarshalBase, path))
	return nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
