package container

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindContainers walks the tree under root and loads every pending
// artifact: .snap.new siblings and .pending-snap record files. Containers
// that resolve to nothing reviewable are dropped.
func FindContainers(root string) ([]*Container, error) {
	var found []*Container
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		var kind Kind
		switch {
		case strings.HasSuffix(name, ".snap.new"):
			kind = KindExternal
		case strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".pending-snap"):
			kind = KindInline
		default:
			return nil
		}
		c, err := Load(path, kind)
		if err != nil {
			return err
		}
		if c.Len() > 0 {
			found = append(found, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
