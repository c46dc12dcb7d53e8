// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AGOL       AGOLConfig       `yaml:"agol" mapstructure:"agol"`
	GraphQL    GraphQLConfig    `yaml:"graphql" mapstructure:"graphql"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	SendGrid   SendGridConfig   `yaml:"sendgrid" mapstructure:"sendgrid"`
	PWSID      PWSIDConfig      `yaml:"pwsid" mapstructure:"pwsid"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AGOLConfig holds ArcGIS Online credentials and layer endpoints. Layer URLs
// are full REST endpoints including the layer index.
type AGOLConfig struct {
	PortalURL        string  `yaml:"portal_url" mapstructure:"portal_url"`
	Username         string  `yaml:"username" mapstructure:"username"`
	Password         string  `yaml:"password" mapstructure:"password"`
	PointsLayerURL   string  `yaml:"points_layer_url" mapstructure:"points_layer_url"`
	AreasLayerURL    string  `yaml:"areas_layer_url" mapstructure:"areas_layer_url"`
	ServiceAreasURL  string  `yaml:"service_areas_url" mapstructure:"service_areas_url"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// GraphQLConfig holds the service line inventory endpoint settings.
type GraphQLConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// SheetConfig identifies one worksheet of one spreadsheet.
type SheetConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Worksheet     string `yaml:"worksheet" mapstructure:"worksheet"`
}

// SheetsConfig holds Google Sheets access settings for the two sheets.
type SheetsConfig struct {
	APIKey         string      `yaml:"api_key" mapstructure:"api_key"`
	Certifications SheetConfig `yaml:"certifications" mapstructure:"certifications"`
	Links          SheetConfig `yaml:"links" mapstructure:"links"`
}

// SendGridConfig holds summary email delivery settings.
type SendGridConfig struct {
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	FromAddress string   `yaml:"from_address" mapstructure:"from_address"`
	ToAddresses []string `yaml:"to_addresses" mapstructure:"to_addresses"`
	Prefix      string   `yaml:"prefix" mapstructure:"prefix"`
}

// PWSIDConfig holds the canonical identifier layout.
type PWSIDConfig struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Digits int    `yaml:"digits" mapstructure:"digits"`
}

// ValidationConfig configures validator behavior.
type ValidationConfig struct {
	// DuplicatePolicy is "keep-first" or "drop-all".
	DuplicatePolicy string `yaml:"duplicate_policy" mapstructure:"duplicate_policy"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LSLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("agol.portal_url", "https://ddwlead-hub.maps.arcgis.com")
	v.SetDefault("agol.requests_per_sec", 4)
	v.SetDefault("graphql.page_size", 8000)
	v.SetDefault("sheets.certifications.worksheet", "Form Responses 1")
	v.SetDefault("sheets.links.worksheet", "Sheet1")
	v.SetDefault("sendgrid.from_address", "noreply@utah.gov")
	v.SetDefault("sendgrid.prefix", "lsli_skid")
	v.SetDefault("pwsid.prefix", "UTAH")
	v.SetDefault("pwsid.digits", 6)
	v.SetDefault("validation.duplicate_policy", "keep-first")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
