package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/iceice666/sunflower/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	Daemon struct {
		Transport     string `mapstructure:"transport"`
		TCPAddr       string `mapstructure:"tcp_addr"`
		SocketPath    string `mapstructure:"socket_path"`
		PipeName      string `mapstructure:"pipe_name"`
		RequestBuffer int    `mapstructure:"request_buffer"`
	} `mapstructure:"daemon"`

	Audio struct {
		SampleRate    int     `mapstructure:"sample_rate"`
		BufferMs      int     `mapstructure:"buffer_ms"`
		DefaultVolume float64 `mapstructure:"default_volume"`
	} `mapstructure:"audio"`

	Playback struct {
		MaxRetries       int `mapstructure:"max_retries"`
		RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms"`
		DrainPollMs      int `mapstructure:"drain_poll_ms"`
	} `mapstructure:"playback"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
		CacheDir     string `mapstructure:"cache_dir"`
		EnableWAL    bool   `mapstructure:"enable_wal"`
	} `mapstructure:"storage"`

	Download struct {
		Timeout           int `mapstructure:"timeout"`
		Retries           int `mapstructure:"retries"`
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		BurstSize         int `mapstructure:"burst_size"`
	} `mapstructure:"download"`

	Search struct {
		MaxResults int `mapstructure:"max_results"`
	} `mapstructure:"search"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SUNFLOWER")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config built purely from defaults, without reading any
// config file or creating directories. Used by tests and embedders.
func Default() *Config {
	setDefaults()

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return &cfg
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("daemon.transport", defaultTransport())
	viper.SetDefault("daemon.tcp_addr", "localhost:8888")
	viper.SetDefault("daemon.socket_path", "/tmp/sunflower-daemon.sock")
	viper.SetDefault("daemon.pipe_name", `\\.\pipe\sunflower-daemon`)
	viper.SetDefault("daemon.request_buffer", 64)

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_ms", 200)
	viper.SetDefault("audio.default_volume", 1.0)

	viper.SetDefault("playback.max_retries", 5)
	viper.SetDefault("playback.retry_base_delay_ms", 5000)
	viper.SetDefault("playback.drain_poll_ms", 25)

	dataDir, _ := platform.GetDataDir()
	cacheDir, _ := platform.GetCacheDir()

	viper.SetDefault("storage.database_path", filepath.Join(dataDir, "downloads.db"))
	viper.SetDefault("storage.cache_dir", cacheDir)
	viper.SetDefault("storage.enable_wal", true)

	viper.SetDefault("download.timeout", 600)
	viper.SetDefault("download.retries", 3)
	viper.SetDefault("download.requests_per_second", 2)
	viper.SetDefault("download.burst_size", 4)

	viper.SetDefault("search.max_results", 50)
}

func defaultTransport() string {
	switch runtime.GOOS {
	case "windows":
		return "pipe"
	case "linux", "darwin":
		return "unix"
	default:
		return "tcp"
	}
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{
		filepath.Dir(cfg.Storage.DatabasePath),
		cfg.Storage.CacheDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}
