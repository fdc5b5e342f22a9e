package xloop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

// Format 配置数据格式。
type Format string

const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

const (
	defaultName         = "xloop"
	defaultPollInterval = time.Second
	defaultMaxRetries   = 3
)

// Config 事件循环配置。
type Config struct {
	// Name 用于日志与指标属性。
	Name string `koanf:"name"`

	// PollInterval 单次等待的超时，超时后调用 tick 处理函数。
	// 负值表示无限期等待（[xwaitobj.Infinite]），0 无效。
	PollInterval time.Duration `koanf:"poll_interval"`

	// MaxRetries 等待被信号中断时的最大重试次数。
	MaxRetries int `koanf:"max_retries"`

	// Metrics 是否记录 OpenTelemetry 指标。
	Metrics bool `koanf:"metrics"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Name:         defaultName,
		PollInterval: defaultPollInterval,
		MaxRetries:   defaultMaxRetries,
		Metrics:      true,
	}
}

// Validate 校验配置。
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidConfig)
	}
	if c.PollInterval == 0 {
		return fmt.Errorf("%w: poll_interval must not be zero", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	return nil
}

// waitTimeout 返回传给 Wait 的超时。
func (c Config) waitTimeout() time.Duration {
	if c.PollInterval < 0 {
		return xwaitobj.Infinite
	}
	return c.PollInterval
}

// ParseConfig 解析配置数据，未出现的字段保留 [DefaultConfig] 的值。
// 空数据返回默认配置。
func ParseConfig(data []byte, format Format) (Config, error) {
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return Config{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, format)
	}

	if len(data) > 0 {
		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, fmt.Errorf("%w: parse: %w", ErrInvalidConfig, err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return Config{}, fmt.Errorf("%w: unmarshal: %w", ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig 从文件加载配置，格式由扩展名（.yaml/.yml/.json）决定。
func LoadConfig(path string) (Config, error) {
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("xloop: read config: %w", err)
	}
	return ParseConfig(data, format)
}

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported config file %q", ErrInvalidConfig, path)
	}
}
