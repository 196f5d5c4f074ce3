package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "addon.json"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// StagingDirName is the staging directory created inside the output directory.
	StagingDirName = "build"

	// SourceDirName holds the add-on's Python package(s).
	SourceDirName = "src"
)

// alternateFileNames are checked after ConfigFileName, in order.
var alternateFileNames = []string{"addon.yaml", "addon.yml"}

// DefaultTrashPatterns are build byproducts purged before packaging.
var DefaultTrashPatterns = []string{"*.pyc", "*.pyo", "__pycache__"}

// DefaultArchiveExcludePatterns are never part of a snapshot, in addition
// to the trash patterns.
var DefaultArchiveExcludePatterns = []string{".git", ".venv", ".DS_Store"}

var (
	moduleNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	ankiVersionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){1,2}$`)
)

// requiredKeys must be present in every configuration document.
var requiredKeys = []string{"display_name", "module_name", "repo_name", "author", "conflicts"}

// Config represents the complete addon.json configuration.
type Config struct {
	// DisplayName is the name shown to users in Anki.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// ModuleName is the Python package name under src/.
	ModuleName string `json:"module_name" yaml:"module_name"`

	// RepoName names the repository and the packaged artifacts.
	RepoName string `json:"repo_name" yaml:"repo_name"`

	// Author is the add-on author.
	Author string `json:"author" yaml:"author"`

	// Conflicts lists add-on packages this add-on cannot run alongside.
	Conflicts []string `json:"conflicts" yaml:"conflicts"`

	// Description is a short description of the add-on.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// AnkiWebID is the add-on's AnkiWeb identifier, if published there.
	AnkiWebID string `json:"ankiweb_id,omitempty" yaml:"ankiweb_id,omitempty"`

	// Targets lists the Qt targets the add-on supports.
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`

	Contact  string     `json:"contact,omitempty" yaml:"contact,omitempty"`
	Homepage string     `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Tags     StringList `json:"tags,omitempty" yaml:"tags,omitempty"`

	// CopyrightStart is the first year of the copyright notice.
	CopyrightStart int `json:"copyright_start,omitempty" yaml:"copyright_start,omitempty"`

	// MinAnkiVersion, MaxAnkiVersion and TestedAnkiVersion bound the
	// supported Anki releases (e.g. "2.1.50" or "25.06").
	MinAnkiVersion    string `json:"min_anki_version,omitempty" yaml:"min_anki_version,omitempty"`
	MaxAnkiVersion    string `json:"max_anki_version,omitempty" yaml:"max_anki_version,omitempty"`
	TestedAnkiVersion string `json:"tested_anki_version,omitempty" yaml:"tested_anki_version,omitempty"`

	// AnkiWebConflictsWithLocal makes local builds declare a conflict with
	// the AnkiWeb release. Defaults to true.
	AnkiWebConflictsWithLocal *bool `json:"ankiweb_conflicts_with_local,omitempty" yaml:"ankiweb_conflicts_with_local,omitempty"`

	// LocalConflictsWithAnkiWeb makes AnkiWeb builds declare a conflict with
	// locally installed copies. Defaults to true.
	LocalConflictsWithAnkiWeb *bool `json:"local_conflicts_with_ankiweb,omitempty" yaml:"local_conflicts_with_ankiweb,omitempty"`

	// Build contains build configuration.
	Build BuildConfig `json:"build_config" yaml:"build_config"`

	// Publish contains release upload configuration.
	Publish PublishConfig `json:"publish,omitempty" yaml:"publish,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// raw is the document as read from disk, used by Set to persist
	// single-key updates without rewriting defaulted fields.
	raw map[string]any
}

// BuildConfig contains build settings.
type BuildConfig struct {
	// OutputDir is the directory receiving packaged artifacts.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// TrashPatterns are globs purged from the project before snapshotting.
	TrashPatterns []string `json:"trash_patterns,omitempty" yaml:"trash_patterns,omitempty"`

	// ArchiveExcludePatterns are globs excluded from the snapshot.
	ArchiveExcludePatterns []string `json:"archive_exclude_patterns,omitempty" yaml:"archive_exclude_patterns,omitempty"`

	// LicensePaths are directories, relative to the snapshot root, searched
	// for LICENSE* files.
	LicensePaths []string `json:"license_paths,omitempty" yaml:"license_paths,omitempty"`

	// ChangelogPath is the changelog file, relative to the snapshot root.
	ChangelogPath string `json:"changelog_path,omitempty" yaml:"changelog_path,omitempty"`

	// IconsPath is the optional icon directory, relative to the project root.
	IconsPath string `json:"icons_path,omitempty" yaml:"icons_path,omitempty"`

	// UI configures designer-file compilation.
	UI UIConfig `json:"ui_config" yaml:"ui_config"`
}

// UIConfig contains designer-file compilation settings.
type UIConfig struct {
	UIDir        string `json:"ui_dir,omitempty" yaml:"ui_dir,omitempty"`
	DesignerDir  string `json:"designer_dir,omitempty" yaml:"designer_dir,omitempty"`
	ResourcesDir string `json:"resources_dir,omitempty" yaml:"resources_dir,omitempty"`
	FormsPackage string `json:"forms_package,omitempty" yaml:"forms_package,omitempty"`

	// ExcludeOptionalResources skips resources/icons/optional when copying
	// UI resources into the module.
	ExcludeOptionalResources bool `json:"exclude_optional_resources,omitempty" yaml:"exclude_optional_resources,omitempty"`

	// Compiler is the designer-file compiler executable.
	Compiler string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
}

// PublishConfig contains artifact upload settings.
type PublishConfig struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// PathStyle forces path-style bucket addressing.
	PathStyle bool `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Conflicts: []string{},
		Targets:   []string{"qt6"},
		Build: BuildConfig{
			OutputDir:              DefaultOutput,
			TrashPatterns:          append([]string(nil), DefaultTrashPatterns...),
			ArchiveExcludePatterns: append([]string(nil), DefaultArchiveExcludePatterns...),
			LicensePaths:           []string{".", "resources"},
			ChangelogPath:          "CHANGELOG.md",
			IconsPath:              filepath.Join("resources", "icons", "optional"),
			UI: UIConfig{
				UIDir:        "ui",
				DesignerDir:  "designer",
				ResourcesDir: "resources",
				FormsPackage: "forms",
				Compiler:     "pyuic6",
			},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for addon.json, then addon.yaml and addon.yml.
func Load(dir string) (*Config, error) {
	return LoadFile(findConfigFile(dir))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E120").
			WithDetail(path).
			Wrap(err)
	}

	raw, err := decodeDocument(path, data)
	if err != nil {
		return nil, err
	}
	if problems := validateDocument(raw); len(problems) > 0 {
		return nil, errors.New("E122").
			WithDetail(strings.Join(problems, "; "))
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E122").Wrap(err)
	}

	cfg.configPath = path
	cfg.raw = raw
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeDocument parses data into a generic document for schema checks.
func decodeDocument(path string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.New("E121").
				WithDetail("Failed to parse " + filepath.Base(path)).
				Wrap(err)
		}
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New("E121").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}
	return raw, nil
}

// validateDocument checks required keys and their types.
func validateDocument(raw map[string]any) []string {
	var problems []string
	for _, key := range requiredKeys {
		value, ok := raw[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("'%s' is a required property", key))
			continue
		}
		switch key {
		case "conflicts":
			if _, ok := value.([]any); !ok {
				problems = append(problems, "'conflicts' must be a list")
			}
		default:
			s, ok := value.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("'%s' must be a string", key))
			} else if strings.TrimSpace(s) == "" {
				problems = append(problems, fmt.Sprintf("'%s' must not be empty", key))
			}
		}
	}
	return problems
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var problems []string

	if !moduleNamePattern.MatchString(c.ModuleName) {
		problems = append(problems, fmt.Sprintf("module_name %q is not a valid Python identifier", c.ModuleName))
	}
	if strings.ContainsAny(c.RepoName, `/\`) {
		problems = append(problems, fmt.Sprintf("repo_name %q must not contain path separators", c.RepoName))
	}
	for name, v := range map[string]string{
		"min_anki_version":    c.MinAnkiVersion,
		"max_anki_version":    c.MaxAnkiVersion,
		"tested_anki_version": c.TestedAnkiVersion,
	} {
		if v != "" && !ankiVersionPattern.MatchString(v) {
			problems = append(problems, fmt.Sprintf("%s %q is not a version like 2.1.50 or 25.06", name, v))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New("E122").WithDetail(strings.Join(problems, "; "))
}

// Set updates a single top-level key and persists the document, leaving
// every other key exactly as it was read. If the updated document does not
// load, the file is restored and the load error returned.
func (c *Config) Set(key string, value any) error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}

	doc := make(map[string]any, len(c.raw)+1)
	for k, v := range c.raw {
		doc[k] = v
	}
	doc[key] = value

	data, err := encode(c.configPath, doc)
	if err != nil {
		return errors.New("E123").Wrap(err)
	}
	previous, err := os.ReadFile(c.configPath)
	if err != nil {
		return errors.New("E123").WithDetail(c.configPath).Wrap(err)
	}
	if err := os.WriteFile(c.configPath, data, 0644); err != nil {
		return errors.New("E123").WithDetail(c.configPath).Wrap(err)
	}

	updated, err := LoadFile(c.configPath)
	if err != nil {
		if rerr := os.WriteFile(c.configPath, previous, 0644); rerr != nil {
			return errors.New("E123").WithDetail("restore " + c.configPath).Wrap(rerr)
		}
		return err
	}
	*c = *updated
	return nil
}

// ParseValue converts a command-line value for key into the value Set
// stores. Keys holding strings keep s verbatim, so "25.06" or an AnkiWeb id
// stay strings; other keys take s as JSON when it parses and as a string
// otherwise.
func ParseValue(key, s string) any {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == key && f.Type.Kind() == reflect.String {
			return s
		}
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Get returns the raw value of a top-level key as read from disk.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.raw[key]
	return v, ok
}

func encode(path string, v any) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file (the project root).
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Conflicts == nil {
		c.Conflicts = []string{}
	}
	if len(c.Targets) == 0 {
		c.Targets = []string{"qt6"}
	}

	defaults := New().Build
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = defaults.OutputDir
	}
	if c.Build.TrashPatterns == nil {
		c.Build.TrashPatterns = defaults.TrashPatterns
	}
	if c.Build.ArchiveExcludePatterns == nil {
		c.Build.ArchiveExcludePatterns = defaults.ArchiveExcludePatterns
	}
	if c.Build.LicensePaths == nil {
		c.Build.LicensePaths = defaults.LicensePaths
	}
	if c.Build.ChangelogPath == "" {
		c.Build.ChangelogPath = defaults.ChangelogPath
	}
	if c.Build.IconsPath == "" {
		c.Build.IconsPath = defaults.IconsPath
	}

	ui := &c.Build.UI
	if ui.UIDir == "" {
		ui.UIDir = defaults.UI.UIDir
	}
	if ui.DesignerDir == "" {
		ui.DesignerDir = defaults.UI.DesignerDir
	}
	if ui.ResourcesDir == "" {
		ui.ResourcesDir = defaults.UI.ResourcesDir
	}
	if ui.FormsPackage == "" {
		ui.FormsPackage = defaults.UI.FormsPackage
	}
	if ui.Compiler == "" {
		ui.Compiler = defaults.UI.Compiler
	}
}

// ConflictsWithLocal reports whether AnkiWeb builds should be marked as
// conflicting with local installs.
func (c *Config) ConflictsWithLocal() bool {
	return c.LocalConflictsWithAnkiWeb == nil || *c.LocalConflictsWithAnkiWeb
}

// ConflictsWithAnkiWeb reports whether local builds should be marked as
// conflicting with the AnkiWeb release.
func (c *Config) ConflictsWithAnkiWeb() bool {
	return c.AnkiWebConflictsWithLocal == nil || *c.AnkiWebConflictsWithLocal
}

// ExcludePatterns returns the trash patterns followed by the archive
// exclude patterns, without duplicates.
func (c *Config) ExcludePatterns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{c.Build.TrashPatterns, c.Build.ArchiveExcludePatterns} {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// resolve returns path relative to the project root unless it is absolute.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.OutputDir)
}

// StagingPath returns the staging root used while assembling a release.
func (c *Config) StagingPath() string {
	return filepath.Join(c.OutputPath(), StagingDirName)
}

// ModulePath returns the module directory inside the staging root.
func (c *Config) ModulePath() string {
	return filepath.Join(c.StagingPath(), SourceDirName, c.ModuleName)
}

// SourceModulePath returns the module directory in the working tree.
func (c *Config) SourceModulePath() string {
	return filepath.Join(c.Dir(), SourceDirName, c.ModuleName)
}

// IconsPath returns the absolute path of the optional icon directory.
func (c *Config) IconsPath() string {
	return c.resolve(c.Build.IconsPath)
}

// StringList accepts either a list of strings or a single string with
// comma- or space-separated items.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*l = splitList(s)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*l = splitList(s)
	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// findConfigFile returns the first existing config file in dir, or the
// default addon.json path when none exists.
func findConfigFile(dir string) string {
	for _, name := range append([]string{ConfigFileName}, alternateFileNames...) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, ConfigFileName)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(findConfigFile(dir))
	return err == nil
}

// IsProject reports whether dir looks like an add-on project: it has a
// config file and a src directory.
func IsProject(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, SourceDirName))
	if err != nil || !info.IsDir() {
		return false
	}
	return Exists(dir)
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing addon.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E140").
				WithDetail("no addon.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
