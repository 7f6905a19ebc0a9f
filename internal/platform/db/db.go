package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"

	DefaultConfigPath = "config/config.yaml"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	// sqlite3 の場合のみ使用
	Path string `yaml:"path"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type AuditConfig struct {
	// cron 形式。空なら定期監査しない
	Schedule string `yaml:"schedule"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Auth        AuthConfig     `yaml:"auth"`
	CORS        CORSConfig     `yaml:"cors"`
	Audit       AuditConfig    `yaml:"audit"`
}

// LoadConfig reads the yaml file at path, then applies .env / environment
// overrides for secrets.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}

	// .env は無くてもよい
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		return nil, fmt.Errorf("mode must be dev or release: %q", cfg.Mode)
	}
	if cfg.DB.Driver != DriverMySQL && cfg.DB.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.DB.Driver)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LIBRARY_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("LIBRARY_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("LIBRARY_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "dev"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8443"
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverMySQL
	}
	if cfg.DB.Driver == DriverSQLite && cfg.DB.Path == "" {
		cfg.DB.Path = "data/library.db"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
}

// Connect opens the configured database and verifies the connection.
func Connect(c DatabaseConfig) (*sql.DB, error) {
	switch c.Driver {
	case DriverSQLite:
		return connectSQLite(c.Path)
	default:
		return connectMySQL(c)
	}
}

func connectMySQL(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

func connectSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", path)
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}
	// SQLite は書き込みが1本なので接続も1本に絞る
	db.SetMaxOpenConns(1)
	return db, nil
}

// Dialect returns the goqu dialect matching driver.
func Dialect(driver string) goqu.DialectWrapper {
	if driver == DriverSQLite {
		return goqu.Dialect(DriverSQLite)
	}
	return goqu.Dialect(DriverMySQL)
}
