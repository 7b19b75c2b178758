package contextgen

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// RootFolder is the key used for files directly under the scanned root.
const RootFolder = "root"

// Structure maps a slash-separated folder path to the file names it holds.
type Structure map[string][]string

// Enumerate collects the files under root whose folder depth is at most
// maxDepth. File names are sorted within each folder.
func Enumerate(root string, maxDepth int) (Structure, error) {
	structure := make(Structure)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && strings.Count(filepath.ToSlash(rel), "/") >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		folder := filepath.ToSlash(filepath.Dir(rel))
		if folder == "." {
			folder = RootFolder
		}
		structure[folder] = append(structure[folder], d.Name())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	for _, files := range structure {
		sort.Strings(files)
	}
	return structure, nil
}

// Format renders the structure for the generation prompt, showing at most
// maxFiles example names per folder.
func Format(structure Structure, maxFiles int) string {
	folders := make([]string, 0, len(structure))
	for f := range structure {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	lines := []string{"Folder Structure:", strings.Repeat("=", 50)}
	for _, folder := range folders {
		files := structure[folder]
		lines = append(lines, "\n"+folder+"/")
		lines = append(lines, fmt.Sprintf("  (%d files)", len(files)))

		shown := files
		if len(shown) > maxFiles {
			shown = shown[:maxFiles]
		}
		for _, name := range shown {
			lines = append(lines, "  - "+name)
		}
		if len(files) > maxFiles {
			lines = append(lines, fmt.Sprintf("  ... and %d more", len(files)-maxFiles))
		}
	}
	return strings.Join(lines, "\n")
}
