package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	creatorsDir string
	cache       map[string]*Config
	mu          sync.RWMutex
}

func NewConfigCache(creatorsDir string) *ConfigCache {
	return &ConfigCache{
		creatorsDir: creatorsDir,
		cache:       make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.creatorsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.creatorsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive creator name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		creator := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(creator)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "creator", creator, "enabled", config.Settings.Enabled, "posts", config.Settings.Posts, "stories", config.Settings.Stories)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(creator string) (*Config, error) {
	configFile := cc.getConfigFilePath(creator)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set creator name from parameter
	config.Creator = creator

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	// Store in cache
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Creator] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(creator string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[creator]
	if !ok {
		return nil, fmt.Errorf("creator config with name '%s' not found", creator)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
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

	if config.Settings.PostFetchCount == 0 {
		config.Settings.PostFetchCount = 3
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Creator == "" {
		return fmt.Errorf("creator name is required")
	}

	if config.Settings.PostFetchCount < 0 {
		return fmt.Errorf("post fetch count must be non-negative")
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(creator string) string {
	return filepath.Join(cc.creatorsDir, creator+".yml")
}
