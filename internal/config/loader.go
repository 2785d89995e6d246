package config

import (
	"log"
	"strings"
	"time"

	"github.com/rpattn/masterdata/internal/db"
	"github.com/rpattn/masterdata/internal/extract"
	"github.com/rpattn/masterdata/internal/upsert"

	"github.com/spf13/viper"
)

// Storage kinds.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Database  db.Config
	Storage   StorageConfig
	Server    ServerConfig
	Ingestion IngestionConfig
}

// StorageConfig selects the backend for mappings, logs and destination tables.
type StorageConfig struct {
	Kind       string
	SQLitePath string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ActorHeader    string
	UploadDir      string
	MaxUploadMB    int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// IngestionConfig configures sheet extraction and destination system columns.
type IngestionConfig struct {
	Sheet    string
	StartRow int
	// Range is an explicit data region such as "A8:GS38". It wins over StartRow.
	Range         string
	DateColumn    string
	IDColumn      string
	ActorColumn   string
	SystemColumns []string
}

// Sink converts the ingestion settings to sink column names.
func (c IngestionConfig) Sink() upsert.Config {
	return upsert.Config{
		DateColumn:    c.DateColumn,
		IDColumn:      c.IDColumn,
		ActorColumn:   c.ActorColumn,
		SystemColumns: c.SystemColumns,
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	sink := upsert.DefaultConfig()
	return Config{
		Database: db.DefaultConfig(),
		Storage: StorageConfig{
			Kind:       StoragePostgres,
			SQLitePath: "data/masterdata.db",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			ActorHeader:    "X-Actor",
			MaxUploadMB:    32,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
		},
		Ingestion: IngestionConfig{
			StartRow:      extract.DefaultStartRow,
			DateColumn:    sink.DateColumn,
			IDColumn:      sink.IDColumn,
			ActorColumn:   sink.ActorColumn,
			SystemColumns: sink.SystemColumns,
		},
	}
}

// Load reads config.yaml from configPath when present. Environment variables
// prefixed with MASTERDATA_ override file values, e.g. MASTERDATA_DATABASE_HOST.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("MASTERDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Println("No config.yaml found, using defaults and env vars")
	} else {
		log.Printf("Loaded %s", v.ConfigFileUsed())
	}

	cfg.Database = db.Config{
		Host:     v.GetString("database.host"),
		Port:     v.GetInt("database.port"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
		DBName:   v.GetString("database.dbname"),
		SSLMode:  v.GetString("database.sslmode"),
		Schema:   v.GetString("database.schema"),
		MaxConns: v.GetInt32("database.max_conns"),
		MinConns: v.GetInt32("database.min_conns"),
	}
	cfg.Storage = StorageConfig{
		Kind:       strings.ToLower(v.GetString("storage.kind")),
		SQLitePath: v.GetString("storage.sqlite_path"),
	}
	cfg.Server = ServerConfig{
		Addr:           v.GetString("server.addr"),
		AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		ActorHeader:    v.GetString("server.actor_header"),
		UploadDir:      v.GetString("server.upload_dir"),
		MaxUploadMB:    v.GetInt64("server.max_upload_mb"),
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
	}
	cfg.Ingestion = IngestionConfig{
		Sheet:         v.GetString("ingestion.sheet"),
		StartRow:      v.GetInt("ingestion.start_row"),
		Range:         strings.TrimSpace(v.GetString("ingestion.range")),
		DateColumn:    v.GetString("ingestion.date_column"),
		IDColumn:      v.GetString("ingestion.id_column"),
		ActorColumn:   v.GetString("ingestion.actor_column"),
		SystemColumns: v.GetStringSlice("ingestion.system_columns"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.dbname", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("database.schema", cfg.Database.Schema)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)
	v.SetDefault("database.min_conns", cfg.Database.MinConns)

	v.SetDefault("storage.kind", cfg.Storage.Kind)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.actor_header", cfg.Server.ActorHeader)
	v.SetDefault("server.upload_dir", cfg.Server.UploadDir)
	v.SetDefault("server.max_upload_mb", cfg.Server.MaxUploadMB)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)

	v.SetDefault("ingestion.sheet", cfg.Ingestion.Sheet)
	v.SetDefault("ingestion.start_row", cfg.Ingestion.StartRow)
	v.SetDefault("ingestion.range", cfg.Ingestion.Range)
	v.SetDefault("ingestion.date_column", cfg.Ingestion.DateColumn)
	v.SetDefault("ingestion.id_column", cfg.Ingestion.IDColumn)
	v.SetDefault("ingestion.actor_column", cfg.Ingestion.ActorColumn)
	v.SetDefault("ingestion.system_columns", cfg.Ingestion.SystemColumns)
}
