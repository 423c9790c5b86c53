package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ESTUDORANK"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`
	WriteTimeout    int `mapstructure:"write_timeout"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Migrations      string `mapstructure:"migrations"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LeaderboardConfig struct {
	View          string `mapstructure:"view"`
	ProgressTable string `mapstructure:"progress_table"`
	PointsTable   string `mapstructure:"points_table"`
	ProfilesTable string `mapstructure:"profiles_table"`
}

type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	LeaderboardCron string `mapstructure:"leaderboard_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "estudorank")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "estudorank")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.migrations", "file://migrations")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("leaderboard.view", "user_points_view")
	v.SetDefault("leaderboard.progress_table", "progress")
	v.SetDefault("leaderboard.points_table", "points")
	v.SetDefault("leaderboard.profiles_table", "profiles")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.leaderboard_cron", "@every 1m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.dir", "")
}

// Load reads defaults, an optional .env file, an optional YAML file at
// configPath and ESTUDORANK_* environment variables, in increasing priority.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(envPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Leaderboard.View == "" || c.Leaderboard.ProgressTable == "" ||
		c.Leaderboard.PointsTable == "" || c.Leaderboard.ProfilesTable == "" {
		return fmt.Errorf("leaderboard table names must not be empty")
	}
	if c.Scheduler.Enabled && c.Scheduler.LeaderboardCron == "" {
		return fmt.Errorf("scheduler.leaderboard_cron is required when the scheduler is enabled")
	}
	return nil
}
