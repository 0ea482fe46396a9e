package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/milk9111/tilenav/common"
)

const (
	SourceEmbed    = "embed"
	SourceDir      = "dir"
	SourcePostgres = "postgres"

	envPrefix = "TILENAV"
)

type Config struct {
	World  WorldConfig  `mapstructure:"world"`
	Chunks ChunksConfig `mapstructure:"chunks"`
	DB     DBConfig     `mapstructure:"db"`
	Log    LogConfig    `mapstructure:"log"`
	Debug  DebugConfig  `mapstructure:"debug"`
}

type WorldConfig struct {
	TileSize     float64 `mapstructure:"tile_size"`
	ChunkTiles   int     `mapstructure:"chunk_tiles"`
	ViewDistance int     `mapstructure:"view_distance"`
}

// ChunkPixels is the world-space edge length of one chunk.
func (w WorldConfig) ChunkPixels() float64 {
	return w.TileSize * float64(w.ChunkTiles)
}

type ChunksConfig struct {
	Source   string        `mapstructure:"source"`
	Dir      string        `mapstructure:"dir"`
	Watch    bool          `mapstructure:"watch"`
	CacheMB  int64         `mapstructure:"cache_mb"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	MapID string `mapstructure:"map_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type DebugConfig struct {
	HTTPAddr       string        `mapstructure:"http_addr"`
	StreamAddr     string        `mapstructure:"stream_addr"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("world.tile_size", float64(common.TileSize))
	v.SetDefault("world.chunk_tiles", common.ChunkTiles)
	v.SetDefault("world.view_distance", 1)

	v.SetDefault("chunks.source", SourceEmbed)
	v.SetDefault("chunks.dir", "levels")
	v.SetDefault("chunks.watch", false)
	v.SetDefault("chunks.cache_mb", 16)
	v.SetDefault("chunks.cache_ttl", 5*time.Minute)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.map_id", "default")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("debug.http_addr", "")
	v.SetDefault("debug.stream_addr", "")
	v.SetDefault("debug.stream_interval", 250*time.Millisecond)
}

// Load reads defaults, then an optional tilenav.yaml in dirs, then
// TILENAV_* environment variables (a .env file in the working directory is
// loaded first when present).
func Load(dirs ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("tilenav")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.World.TileSize <= 0 {
		return fmt.Errorf("config: world.tile_size must be positive, got %v", c.World.TileSize)
	}
	if c.World.ChunkTiles <= 0 {
		return fmt.Errorf("config: world.chunk_tiles must be positive, got %d", c.World.ChunkTiles)
	}
	if c.World.ViewDistance < 0 {
		return fmt.Errorf("config: world.view_distance must not be negative, got %d", c.World.ViewDistance)
	}
	switch c.Chunks.Source {
	case SourceEmbed, SourceDir:
	case SourcePostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("config: chunks.source %q needs db.dsn", SourcePostgres)
		}
	default:
		return fmt.Errorf("config: unknown chunks.source %q", c.Chunks.Source)
	}
	return nil
}
