package dataset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-rpn/images"
)

// Supported annotation file extensions.
var annotationExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// LoadAnnotationFile reads the annotations stored in a single file.
//
// A file holds either one annotation object or a list of them. JSON is used for
// ".json" files and YAML for ".yaml" and ".yml".
//
// Arguments:
//   - path: The annotation file path.
//
// Returns:
//   - []Annotation: The annotations in file order.
//   - error: Error if the file cannot be read or decoded.
func LoadAnnotationFile(path string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read annotations %s", path)
	}

	var anns []Annotation
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		anns, err = decodeJSON(data)
	case ".yaml", ".yml":
		anns, err = decodeYAML(data)
	default:
		return nil, errors.Errorf("unsupported annotation format %q: %s", ext, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode annotations %s", path)
	}

	if err := ResolveSizes(anns, filepath.Dir(path)); err != nil {
		return nil, errors.Wrapf(err, "annotations %s", path)
	}
	return anns, nil
}

// ResolveSizes fills in the width and height of annotations that omit them by
// reading the image header. Relative image paths are resolved against root.
func ResolveSizes(anns []Annotation, root string) error {
	for i := range anns {
		ann := &anns[i]
		if ann.Width != 0 || ann.Height != 0 || ann.Path == "" {
			continue
		}

		path := ann.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		size, err := images.ReadSize(path)
		if err != nil {
			return errors.Wrapf(err, "size of %s", ann.Path)
		}
		ann.Width, ann.Height = size.Width, size.Height
	}
	return nil
}

// LoadDirectoryAnnotations reads every annotation file in a directory.
//
// Files are visited in name order so that image indices, and therefore the
// per-image random streams derived from them, are stable between runs.
//
// Arguments:
//   - dir: Directory path containing annotation files.
//
// Returns:
//   - []Annotation: All annotations, file by file.
//   - error: Error if loading fails.
func LoadDirectoryAnnotations(dir string) ([]Annotation, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read annotation directory %s", dir)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if annotationExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	var anns []Annotation
	for _, name := range names {
		loaded, err := LoadAnnotationFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		anns = append(anns, loaded...)
	}

	return anns, nil
}

// Load reads annotations from a file or a directory of files.
func Load(path string) ([]Annotation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat annotations %s", path)
	}
	if info.IsDir() {
		return LoadDirectoryAnnotations(path)
	}
	return LoadAnnotationFile(path)
}

func decodeJSON(data []byte) ([]Annotation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var anns []Annotation
		if err := json.Unmarshal(trimmed, &anns); err != nil {
			return nil, err
		}
		return anns, nil
	}

	var ann Annotation
	if err := json.Unmarshal(trimmed, &ann); err != nil {
		return nil, err
	}
	return []Annotation{ann}, nil
}

func decodeYAML(data []byte) ([]Annotation, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	if node.Content[0].Kind == yaml.SequenceNode {
		var anns []Annotation
		if err := node.Decode(&anns); err != nil {
			return nil, err
		}
		return anns, nil
	}

	var ann Annotation
	if err := node.Decode(&ann); err != nil {
		return nil, err
	}
	return []Annotation{ann}, nil
}
