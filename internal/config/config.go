package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Server   ServerConfig  `mapstructure:"server"`
	Library  LibraryConfig `mapstructure:"library"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	AudioRoot string `mapstructure:"audio_root"`
	StateDir  string `mapstructure:"state_dir"`
	ExportDir string `mapstructure:"export_dir"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

type LibraryConfig struct {
	Watch bool `mapstructure:"watch"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			AudioRoot: ".",
			StateDir:  ".wavecut",
			ExportDir: "exports",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 30,
			RequestTimeout:  60,
			MaxBodyBytes:    1 << 20,
		},
		Library: LibraryConfig{
			Watch: false,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-audio-root", defaults.Paths.AudioRoot, "Directory holding the WAV library")
	fs.String("root", defaults.Paths.AudioRoot, "Directory holding the WAV library (alias for --paths-audio-root)")
	fs.String("paths-state-dir", defaults.Paths.StateDir, "Directory for cached segment state")
	fs.String("paths-export-dir", defaults.Paths.ExportDir, "Directory receiving exported segment WAVs")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int64("server-max-body-bytes", defaults.Server.MaxBodyBytes, "Maximum accepted request body size in bytes")
	fs.Bool("library-watch", defaults.Library.Watch, "Watch the audio root and refresh listings on change")
	fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
		// Aliases map flag spellings onto config keys; registering them
		// without bound flags breaks config-file unmarshalling.
		registerAliases(v)
	}

	v.SetEnvPrefix("WAVECUT")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("paths.audio_root", "WAVECUT_ROOT"); err != nil {
		return Config{}, fmt.Errorf("bind root env var: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wavecut")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.audio_root", c.Paths.AudioRoot)
	v.SetDefault("paths.state_dir", c.Paths.StateDir)
	v.SetDefault("paths.export_dir", c.Paths.ExportDir)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.max_body_bytes", c.Server.MaxBodyBytes)
	v.SetDefault("library.watch", c.Library.Watch)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.audio_root", "paths-audio-root")
	v.RegisterAlias("paths.audio_root", "root")
	v.RegisterAlias("paths.state_dir", "paths-state-dir")
	v.RegisterAlias("paths.export_dir", "paths-export-dir")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.max_body_bytes", "server-max-body-bytes")
	v.RegisterAlias("library.watch", "library-watch")
	v.RegisterAlias("log_level", "log-level")
}
