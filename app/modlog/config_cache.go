package modlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWikiPage      = "modlog"
	DefaultBatchSize     = 100
	DefaultRetentionDays = 30
	DefaultMaxEntries    = 1000
	DefaultSizeLimit     = 524288 // reddit wiki page character limit
	DefaultTimeout       = 30
)

// DefaultWikiActions are the action types recorded when a config lists none.
var DefaultWikiActions = []string{
	"removelink",
	"removecomment",
	"spamlink",
	"spamcomment",
	"addremovalreason",
	"approvelink",
	"approvecomment",
}

var subredditNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

type ConfigCache struct {
	configsDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(configsDir string) *ConfigCache {
	return &ConfigCache{
		configsDir: configsDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.configsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.configsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive subreddit name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		name := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "subreddit", name, "enabled", config.Enabled, "wiki_page", config.WikiPage, "retention_days", config.Settings.RetentionDays)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	configFile := cc.getConfigFilePath(name)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// reddit names are case-insensitive; the partition key is lowercase
	config.Name = strings.ToLower(name)

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

// GetConfig looks a partition up by subreddit name, ignoring case.
func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("config for subreddit '%s' not found", name)
	}
	return config, nil
}

// GetEnabledConfigs returns enabled partitions sorted by name so passes run in a
// stable order.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })
	return enabled
}

func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, v)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.WikiPage == "" {
		config.WikiPage = DefaultWikiPage
	}
	if config.Settings.BatchSize == 0 {
		config.Settings.BatchSize = DefaultBatchSize
	}
	if config.Settings.RetentionDays == 0 {
		config.Settings.RetentionDays = DefaultRetentionDays
	}
	if config.Settings.MaxEntries == 0 {
		config.Settings.MaxEntries = DefaultMaxEntries
	}
	if config.Settings.SizeLimit == 0 {
		config.Settings.SizeLimit = DefaultSizeLimit
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = DefaultTimeout
	}
	if len(config.Settings.WikiActions) == 0 {
		config.Settings.WikiActions = append([]string(nil), DefaultWikiActions...)
	}
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	subredditFields := map[string]string{
		"subreddit name":   config.Name,
		"target subreddit": config.Target(),
	}

	for fieldName, fieldValue := range subredditFields {
		if !subredditNamePattern.MatchString(fieldValue) {
			return fmt.Errorf("%s %q is not a valid subreddit name", fieldName, fieldValue)
		}
	}

	positiveFields := map[string]int{
		"batch size":     config.Settings.BatchSize,
		"retention days": config.Settings.RetentionDays,
		"max entries":    config.Settings.MaxEntries,
		"size limit":     config.Settings.SizeLimit,
		"timeout":        config.Settings.Timeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if strings.ContainsAny(config.WikiPage, " |") {
		return fmt.Errorf("invalid wiki page name: %q", config.WikiPage)
	}

	for i, action := range config.Settings.WikiActions {
		if strings.TrimSpace(action) == "" {
			return fmt.Errorf("empty wiki action at index %d", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(name string) string {
	return filepath.Join(cc.configsDir, name+".yml")
}
