package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for the latest-snapshot sink.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
	CreateDB bool   `mapstructure:"create_db"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SSM parameter names holding production credentials.
const (
	ssmHostParam     = "TICKERFEED_DB_HOST"
	ssmUserParam     = "TICKERFEED_DB_USER"
	ssmPasswordParam = "TICKERFEED_DB_PASSWORD"
)

// DSN builds a lib/pq style connection string. In "prod" the host, user and
// password come from AWS SSM Parameter Store; a parameter that cannot be
// read falls back to the configured value.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password

	if env == "prod" {
		host = parameterOr(ssmHostParam, host)
		user = parameterOr(ssmUserParam, user)
		password = parameterOr(ssmPasswordParam, password)
	}

	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN points at the server's default "postgres" database, used to
// create the configured database when it does not exist yet.
func (cfg *PostgresConfig) AdminDSN() string {
	return cfg.dsn(cfg.Host, cfg.User, cfg.Password, "postgres")
}

func (cfg *PostgresConfig) dsn(host, user, password, dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbname, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func parameterOr(name, fallback string) string {
	if v := getParameterStoreValue(name, true); v != "" {
		return v
	}
	return fallback
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
