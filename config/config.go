package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port int `json:"port" yaml:"port"`
		// MaxRequestBodySize limits request body size, e.g. "100KB", "1MB"
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Site configuration for URL building and hostname policy
	Site *SiteConfig `json:"site" yaml:"site"`

	// Mail configuration for transactional email delivery
	Mail *MailConfig `json:"mail" yaml:"mail"`

	// PubSub configuration for job event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Alerts configuration for subscription query validation
	Alerts *AlertsConfig `json:"alerts" yaml:"alerts"`

	// Digest configuration for the notification pipeline
	Digest *DigestConfig `json:"digest" yaml:"digest"`

	// Geocoder configuration for address resolution
	Geocoder *GeocoderConfig `json:"geocoder" yaml:"geocoder"`

	// Summary configuration for the proposal change service
	Summary *SummaryConfig `json:"summary" yaml:"summary"`

	// QRCode configuration for action-link QR codes in mail
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// SiteConfig defines deployment-wide site settings.
type SiteConfig struct {
	// DefaultHostname answers for requests that match no registered site
	DefaultHostname string `json:"defaultHostname" yaml:"defaultHostname"`

	// Scheme used when building absolute action URLs
	Scheme string `json:"scheme" yaml:"scheme" validate:"omitempty,oneof=http https"`
}

// MailConfig defines transactional mail delivery settings.
type MailConfig struct {
	// Provider type: "resend" for the Resend API or "noop" to log instead of send
	Provider string `json:"provider" yaml:"provider" validate:"omitempty,oneof=resend noop"`

	// Resend API key (for resend provider)
	APIKey string `json:"apiKey" yaml:"apiKey"`

	// Sender identity on outgoing mail
	FromEmail string `json:"fromEmail" yaml:"fromEmail" validate:"omitempty,email"`
	FromName  string `json:"fromName" yaml:"fromName"`
}

// PubSubConfig defines Pub/Sub configuration for job event publishing.
type PubSubConfig struct {
	// Provider type: "local" for local HTTP, "google" for Google Pub/Sub, "noop" to drop
	Provider string `json:"provider" yaml:"provider" validate:"omitempty,oneof=local google noop"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// AlertsConfig defines global bounds on subscription queries.
type AlertsConfig struct {
	// Minimum radius in meters a circle query may use
	MinRadius float64 `json:"minRadius" yaml:"minRadius" validate:"gte=0"`

	// Maximum radius in meters; site policy may be stricter
	MaxRadius float64 `json:"maxRadius" yaml:"maxRadius" validate:"gte=0"`

	// Threshold a candidate must reach to count as a similar subscription
	MinSimilarity float64 `json:"minSimilarity" yaml:"minSimilarity" validate:"gte=0,lte=1"`
}

// DigestConfig defines the cadence of the notification pipeline.
type DigestConfig struct {
	// Interval between digests for one subscription
	Interval time.Duration `json:"interval" yaml:"interval"`

	// StaleAfter is how long an unconfirmed subscription lives before the sweep
	StaleAfter time.Duration `json:"staleAfter" yaml:"staleAfter"`
}

// GeocoderConfig defines the address resolution service.
type GeocoderConfig struct {
	// Google Geocoding API key
	APIKey string `json:"apiKey" yaml:"apiKey"`

	// Region bias passed to the API, e.g. "us"
	Region string `json:"region" yaml:"region"`

	// Bounds bias as "latMin,lonMin,latMax,lonMax", empty to disable
	Bounds string `json:"bounds" yaml:"bounds"`
}

// SummaryConfig defines the proposal change summary service.
type SummaryConfig struct {
	// Endpoint of the proposal data service
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`

	// Timeout per summary request
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// QRCodeConfig defines QR code generation configuration.
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel" validate:"omitempty,oneof=low medium high highest"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	cfg.applyDefaults()

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config failed")
	}

	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Site == nil {
		cfg.Site = &SiteConfig{}
	}
	if cfg.Site.Scheme == "" {
		cfg.Site.Scheme = "https"
	}
	if cfg.Alerts == nil {
		cfg.Alerts = &AlertsConfig{}
	}
	if cfg.Alerts.MinSimilarity == 0 {
		cfg.Alerts.MinSimilarity = 0.75
	}
	if cfg.Digest == nil {
		cfg.Digest = &DigestConfig{}
	}
	if cfg.Digest.Interval == 0 {
		cfg.Digest.Interval = 7 * 24 * time.Hour
	}
	if cfg.Digest.StaleAfter == 0 {
		cfg.Digest.StaleAfter = 14 * 24 * time.Hour
	}
	if cfg.Mail == nil {
		cfg.Mail = &MailConfig{Provider: "noop"}
	}
	if cfg.PubSub == nil {
		cfg.PubSub = &PubSubConfig{Provider: "noop"}
	}
	if cfg.Summary == nil {
		cfg.Summary = &SummaryConfig{}
	}
	if cfg.Summary.Timeout == 0 {
		cfg.Summary.Timeout = 30 * time.Second
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
