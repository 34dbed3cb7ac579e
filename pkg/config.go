package dupblock

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dupblock configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// SearchConfig represents duplicate search configuration
type SearchConfig struct {
	BlockSize      string   // Block size, human readable ("4K"); empty means unset
	MinSize        string   // Minimum candidate file size (default: "1")
	Pattern        string   // Glob matched against base names (default: "*")
	Recursive      bool     // Walk subdirectories (default: true)
	SkipUnreadable bool     // Drop unreadable candidates instead of aborting (default: false)
	IgnoreFile     string   // File of regex ignore patterns
	Exclude        []string // Excluded directories
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // Output format: human, json
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	Workers int // Number of size groups processed concurrently (default: 1)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Search      *SearchConfig
	Hash        *HashConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
}

// NewDefaultConfig returns an in-memory configuration holding the defaults
func NewDefaultConfig() (*Config, error) {
	cfg := &Config{ini: ini.Empty()}
	if err := cfg.setDefaults(); err != nil {
		return nil, fmt.Errorf("failed to set default config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from an ini file. Keys missing from the
// file fall back to the defaults; a missing file yields the defaults alone,
// remembered under configPath so Save can create it.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		VerboseLog(2, "Config file %s not found, using defaults", configPath)
		cfg, err := NewDefaultConfig()
		if err != nil {
			return nil, err
		}
		cfg.configPath = configPath
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return &Config{
		configPath: configPath,
		ini:        iniFile,
	}, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section string
		key     string
		value   string
	}{
		{"search", "block_size", ""},
		{"search", "min_size", strconv.Itoa(DefaultMinFileSize)},
		{"search", "pattern", DefaultPattern},
		{"search", "recursive", "true"},
		{"search", "skip_unreadable", "false"},
		{"search", "ignore_file", ""},
		{"search", "exclude", ""},
		{"filehash", "default", DefaultHashAlgorithm},
		{"output", "format", DefaultOutputFormat},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
		{"performance", "workers", strconv.Itoa(DefaultWorkers)},
	}

	for _, d := range defaults {
		section, err := c.ini.GetSection(d.section)
		if err != nil {
			section, err = c.ini.NewSection(d.section)
			if err != nil {
				return fmt.Errorf("failed to create %s section: %w", d.section, err)
			}
		}
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}
	return nil
}

// GetSearchConfig returns the search configuration
func (c *Config) GetSearchConfig() *SearchConfig {
	searchConfig := &SearchConfig{
		MinSize:   strconv.Itoa(DefaultMinFileSize), // fallback default
		Pattern:   DefaultPattern,                   // fallback default
		Recursive: true,                             // fallback default
	}

	if c.ini.HasSection("search") {
		section := c.ini.Section("search")
		if section.HasKey("block_size") {
			searchConfig.BlockSize = section.Key("block_size").String()
		}
		if section.HasKey("min_size") {
			if minSize := section.Key("min_size").String(); minSize != "" {
				searchConfig.MinSize = minSize
			}
		}
		if section.HasKey("pattern") {
			if pattern := section.Key("pattern").String(); pattern != "" {
				searchConfig.Pattern = pattern
			}
		}
		if section.HasKey("recursive") {
			if recursive, err := section.Key("recursive").Bool(); err == nil {
				searchConfig.Recursive = recursive
			}
		}
		if section.HasKey("skip_unreadable") {
			if skip, err := section.Key("skip_unreadable").Bool(); err == nil {
				searchConfig.SkipUnreadable = skip
			}
		}
		if section.HasKey("ignore_file") {
			searchConfig.IgnoreFile = section.Key("ignore_file").String()
		}
		if section.HasKey("exclude") {
			for _, dir := range section.Key("exclude").Strings(",") {
				if dir != "" {
					searchConfig.Exclude = append(searchConfig.Exclude, dir)
				}
			}
		}
	}

	return searchConfig
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm, // fallback default
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			if algorithm := section.Key("default").String(); algorithm != "" {
				hashConfig.Default = algorithm
			}
		}
	}

	return hashConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: DefaultOutputFormat, // fallback default
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		Workers: DefaultWorkers, // fallback default
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("workers") {
			if workers, err := section.Key("workers").Int(); err == nil {
				performanceConfig.Workers = workers
			}
		}
	}

	return performanceConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Search:      c.GetSearchConfig(),
		Hash:        c.GetHashConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
	}
}

// Set stores a raw value
func (c *Config) Set(section, key, value string) {
	c.ini.Section(section).Key(key).SetValue(value)
}

// Save saves the configuration to the file it was loaded from
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config has no file path")
	}
	return c.ini.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path
func (c *Config) SaveTo(path string) error {
	if err := c.ini.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config to %s: %w", path, err)
	}
	return nil
}

// overrideKeys maps override keys to their ini section and key
var overrideKeys = map[string][2]string{
	"block_size":      {"search", "block_size"},
	"min_size":        {"search", "min_size"},
	"pattern":         {"search", "pattern"},
	"recursive":       {"search", "recursive"},
	"skip_unreadable": {"search", "skip_unreadable"},
	"ignore_file":     {"search", "ignore_file"},
	"exclude":         {"search", "exclude"},
	"default":         {"filehash", "default"},
	"hash":            {"filehash", "default"},
	"format":          {"output", "format"},
	"level":           {"verbose", "level"},
	"debug":           {"verbose", "debug"},
	"workers":         {"performance", "workers"},
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "block_size:4K", "hash:md5", "level:2", "debug:scan"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: block_size, min_size, pattern, recursive, skip_unreadable, ignore_file, exclude, hash, format, level, debug, workers)", key)
		}
		c.Set(target[0], target[1], value)
	}

	return nil
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	if all.Search.BlockSize != "" {
		if _, err := ParseHumanSize(all.Search.BlockSize); err != nil {
			return fmt.Errorf("invalid block_size: %w", err)
		}
	}
	if _, err := ParseHumanSizeAllowZero(all.Search.MinSize); err != nil {
		return fmt.Errorf("invalid min_size: %w", err)
	}
	if err := ValidatePattern(all.Search.Pattern); err != nil {
		return err
	}
	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	return ValidateWorkers(all.Performance.Workers)
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateWorkers validates that the worker count is reasonable
func ValidateWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", workers)
	}
	if workers > MaxWorkers {
		return fmt.Errorf("workers should not exceed %d, got: %d", MaxWorkers, workers)
	}
	return nil
}
