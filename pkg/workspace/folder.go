// Package workspace describes a translation workspace on disk: Asset Folders
// named Category[_vX.Y][_LANG] under a root directory, and the TOML
// configuration that maps categories to container formats and distribution
// paths.
package workspace

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var versionPattern = regexp.MustCompile(`^v\d(\.\d+)*$`)

// BaseVersion is the version of unversioned folders. Requesting it is the
// same as requesting no version.
const BaseVersion = "v1.0"

// Folder is a parsed Asset Folder name.
type Folder struct {
	Category string
	Version  string // empty for the base game
	Language string // empty for language-less folders
}

// IsVersion reports whether s looks like a version tag.
func IsVersion(s string) bool {
	return versionPattern.MatchString(s)
}

// SplitFolder parses an Asset Folder name. The second component is a version
// if it matches the version pattern and a language otherwise; a third
// component is always the language.
func SplitFolder(name string) Folder {
	parts := strings.Split(name, "_")
	f := Folder{Category: parts[0]}
	if len(parts) > 1 {
		if IsVersion(parts[1]) {
			f.Version = parts[1]
		} else {
			f.Language = parts[1]
		}
	}
	if len(parts) > 2 {
		f.Language = parts[2]
	}
	return f
}

// JoinFolder builds an Asset Folder name.
func JoinFolder(category, language, version string) string {
	name := category
	if version != "" {
		name += "_" + version
	}
	if language != "" {
		name += "_" + language
	}
	return name
}

// Name returns the folder name f was parsed from.
func (f Folder) Name() string {
	return JoinFolder(f.Category, f.Language, f.Version)
}

func (f Folder) String() string { return f.Name() }

// ListFolders returns the Asset Folders directly under root, sorted by name.
func ListFolders(root string) ([]Folder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	var out []Folder
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		out = append(out, SplitFolder(e.Name()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Pairs returns the folders of category that have an original-language
// counterpart of the same version, excluding the original-language folders
// themselves. Each pair is the edited folder and its original folder.
func Pairs(folders []Folder, category, originalLanguage string) [][2]Folder {
	versions := make(map[string]bool)
	for _, f := range folders {
		if f.Category == category && f.Language == originalLanguage {
			versions[f.Version] = true
		}
	}
	var out [][2]Folder
	for _, f := range folders {
		if f.Category != category || f.Language == originalLanguage || !versions[f.Version] {
			continue
		}
		orig := Folder{Category: category, Version: f.Version, Language: originalLanguage}
		out = append(out, [2]Folder{f, orig})
	}
	return out
}
