package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFile is the default configuration file name, relative to the
// workspace root.
const ConfigFile = "patchwork.toml"

// Config is the on-disk workspace configuration.
type Config struct {
	OriginalLanguage string `toml:"original_language"`
	Separator        string `toml:"separator"`
	Charset          string `toml:"charset"`
	Table            string `toml:"table,omitempty"`
	DeltaTool        string `toml:"delta_tool"`
	DeltaBinary      string `toml:"delta_binary"`
	Verbose          int    `toml:"verbose"`
	Force            bool   `toml:"force"`

	Text    map[string]TextConfig `toml:"text"`
	Delta   map[string][]string   `toml:"delta"`
	Parents map[string]string     `toml:"parents"`
}

// TextConfig describes a text-table category.
type TextConfig struct {
	Mode      string `toml:"mode"`
	Original  string `toml:"original"`
	Save      string `toml:"save"`
	Patch     string `toml:"patch"`
	PrefixLen int    `toml:"prefix_len,omitempty"`
}

// DefaultConfig returns the configuration of a fresh workspace.
func DefaultConfig() *Config {
	rom := func(name string) string {
		return filepath.ToSlash(filepath.Join("ExtractedRomFS", "data", name))
	}
	return &Config{
		OriginalLanguage: "JA",
		Separator:        "E31B",
		Charset:          "windows-1252",
		DeltaTool:        "xdelta",
		DeltaBinary:      "xdelta3",
		Verbose:          1,
		Text: map[string]TextConfig{
			"Message": {Mode: "binJ", Original: ".binJ", Save: ".savJ", Patch: ".patJ"},
			"Event":   {Mode: "e", Original: ".e", Save: ".savE", Patch: ".patE"},
		},
		Delta: map[string][]string{
			"Banner":      {".bcwav", ".cbmd", ".cgfx"},
			"Battle":      {".bcres"},
			"Code":        {".bin"},
			"Debug":       {".bin"},
			"Effect":      {".bcres"},
			"Event":       {".gz"},
			"Field":       {".gz", ".xbb", ".bcres"},
			"Font":        {".bcfnt"},
			"KeyImage":    {".bclim"},
			"Layout":      {".arc"},
			"Menu3D":      {".bcres", ".bcenv"},
			"Model":       {".bcres"},
			"MonsterIcon": {".bclim"},
			"NaviMap":     {".arc"},
			"Param":       {".gz", ".bin"},
			"PartsIcon":   {".bclim"},
			"Title":       {".bcres"},
		},
		Parents: map[string]string{
			"Banner":      "ExtractedBanner",
			"Battle":      rom("Battle"),
			"Code":        "ExtractedExeFS",
			"Debug":       rom("Debug"),
			"Effect":      rom("Effect"),
			"Event":       rom("Event"),
			"Field":       rom("Field"),
			"Font":        rom("Font"),
			"KeyImage":    rom("KeyImage"),
			"Layout":      rom("Layout"),
			"Menu3D":      rom("Menu3D"),
			"Message":     rom("Message"),
			"Model":       rom("Model"),
			"MonsterIcon": rom("MonsterIcon"),
			"NaviMap":     rom("NaviMap"),
			"Param":       rom("Param"),
			"PartsIcon":   rom("PartsIcon"),
			"Title":       rom("Title"),
		},
	}
}

// LoadConfig reads the configuration at path. A missing file yields the
// defaults; keys absent from the file keep their default values, and a
// table present in the file replaces the default table as a whole.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file Config
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("read config %s: unknown key %q", path, undecoded[0].String())
	}

	if md.IsDefined("original_language") {
		cfg.OriginalLanguage = file.OriginalLanguage
	}
	if md.IsDefined("separator") {
		cfg.Separator = file.Separator
	}
	if md.IsDefined("charset") {
		cfg.Charset = file.Charset
	}
	if md.IsDefined("table") {
		cfg.Table = file.Table
	}
	if md.IsDefined("delta_tool") {
		cfg.DeltaTool = file.DeltaTool
	}
	if md.IsDefined("delta_binary") {
		cfg.DeltaBinary = file.DeltaBinary
	}
	if md.IsDefined("verbose") {
		cfg.Verbose = file.Verbose
	}
	if md.IsDefined("force") {
		cfg.Force = file.Force
	}
	if md.IsDefined("text") {
		cfg.Text = file.Text
	}
	if md.IsDefined("delta") {
		cfg.Delta = file.Delta
	}
	if md.IsDefined("parents") {
		cfg.Parents = file.Parents
	}
	return cfg, nil
}

// WriteConfig atomically writes cfg to path.
func WriteConfig(path string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}
	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file beside path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".patchwork-write-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
