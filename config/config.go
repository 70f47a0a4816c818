package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

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

	defaultAccessTokenTTL       = 15 * time.Minute
	defaultRefreshTokenTTL      = "7d"
	defaultEmailVerificationTTL = 24 * time.Hour
	defaultPasswordResetTTL     = time.Hour
	defaultRevokedRetention     = 7 * 24 * time.Hour
	defaultCleanupInterval      = time.Hour
	defaultMailQueue            = "mail.outbound"
	defaultBrandName            = "Eventos"
	defaultAdminNick            = "admin"
	defaultMetricsPath          = "/metrics"
	defaultMetricsNamespace     = "eventos"
	defaultRateLimitPrefix      = "ratelimit"
)

// Rate limit policy names, one per throttled endpoint.
const (
	RateLimitLogin              = "login"
	RateLimitRegister           = "register"
	RateLimitResendVerification = "resendVerification"
	RateLimitForgotPassword     = "forgotPassword"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
		// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For.
		// When empty the client IP is the TCP peer address.
		TrustedProxies []string `json:"trustedProxies" yaml:"trustedProxies"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// AutoMigrate creates or alters the tables on startup.
	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate"`

	SecretKey SecretKey `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	PasswordStrength *PasswordStrengthConfig `json:"passwordStrength" yaml:"passwordStrength"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	Mail *MailConfig `json:"mail" yaml:"mail"`

	// Admin is the account bootstrapped on startup; skipped when email or password is empty.
	Admin *AdminConfig `json:"admin" yaml:"admin"`

	Cleanup *CleanupConfig `json:"cleanup" yaml:"cleanup"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SecretKey holds the HMAC secrets. Refresh falls back to Access when empty.
type SecretKey struct {
	Access  string `json:"access" yaml:"access"`
	Refresh string `json:"refresh" yaml:"refresh"`
}

// RefreshSecret returns the secret used for refresh tokens.
func (s SecretKey) RefreshSecret() string {
	if s.Refresh != "" {
		return s.Refresh
	}

	return s.Access
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`

	AccessTokenTTL time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	// RefreshTokenTTL is a duration string such as "7d" or "24h".
	RefreshTokenTTL string `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`

	EmailVerificationTTL time.Duration `json:"emailVerificationTTL" yaml:"emailVerificationTTL"`
	PasswordResetTTL     time.Duration `json:"passwordResetTTL" yaml:"passwordResetTTL"`

	// RevokedRetention is how long rotated ledger rows are kept for replay detection.
	RevokedRetention time.Duration `json:"revokedRetention" yaml:"revokedRetention"`

	// ForgotPasswordMinDuration pads forgot-password responses so existing
	// and unknown emails take the same time.
	ForgotPasswordMinDuration time.Duration `json:"forgotPasswordMinDuration" yaml:"forgotPasswordMinDuration"`

	Cookie CookieConfig `json:"cookie" yaml:"cookie"`
}

// CookieConfig controls the httpOnly token cookies.
type CookieConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Secure   bool   `json:"secure" yaml:"secure"`
	Domain   string `json:"domain" yaml:"domain"`
	SameSite string `json:"sameSite" yaml:"sameSite"`
}

// PasswordStrengthConfig defines password strength requirements
type PasswordStrengthConfig struct {
	MinLength        int  `json:"minLength" yaml:"minLength"`
	MaxLength        int  `json:"maxLength" yaml:"maxLength"`
	RequireUppercase bool `json:"requireUppercase" yaml:"requireUppercase"`
	RequireLowercase bool `json:"requireLowercase" yaml:"requireLowercase"`
	RequireNumbers   bool `json:"requireNumbers" yaml:"requireNumbers"`
	RequireSpecial   bool `json:"requireSpecial" yaml:"requireSpecial"`
}

// RedisConfig points at the redis used for rate limiting. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig configures the token-bucket limiter.
type RateLimitConfig struct {
	Enabled  bool                       `json:"enabled" yaml:"enabled"`
	Prefix   string                     `json:"prefix" yaml:"prefix"`
	Policies map[string]RateLimitPolicy `json:"policies" yaml:"policies"`
}

// RateLimitPolicy allows Limit requests per Window, per client IP.
type RateLimitPolicy struct {
	Limit  int           `json:"limit" yaml:"limit"`
	Window time.Duration `json:"window" yaml:"window"`
}

// MailConfig configures outbound mail.
type MailConfig struct {
	// Provider is "rabbitmq" or "log".
	Provider    string `json:"provider" yaml:"provider"`
	URL         string `json:"url" yaml:"url"`
	Queue       string `json:"queue" yaml:"queue"`
	FrontendURL string `json:"frontendURL" yaml:"frontendURL"`
	BrandName   string `json:"brandName" yaml:"brandName"`
}

type AdminConfig struct {
	Email    string `json:"email" yaml:"email"`
	Nick     string `json:"nick" yaml:"nick"`
	Password string `json:"password" yaml:"password"`
}

type CleanupConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Path      string `json:"path" yaml:"path"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv reads <currEnv>.yaml from the first search path that has it,
// then overlays environment variables on top.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	k := koanf.New(".")

	configFile, err := findConfigFile(currEnv, configPath)
	if err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existing := k.Raw()

	// SECRETKEY_ACCESS -> secretKey.access, matched against the YAML keys.
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return canonicalizeEnvKey(key, existing), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func findConfigFile(currEnv string, configPath []string) (string, error) {
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.Errorf("config file %s.yaml not found in any search path", currEnv)
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyEnvAliases(cfg, os.LookupEnv)
	applyDefaults(cfg)

	if cfg.SecretKey.Access == "" {
		return nil, errors.New("secretKey.access (JWT_SECRET) must be set")
	}

	if cfg.Postgres != nil {
		// POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, ...
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyEnvAliases honours the flat variable names operators already use for
// this service. They win over the YAML values.
func applyEnvAliases(cfg *Config, lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Admin == nil {
		cfg.Admin = &AdminConfig{}
	}
	if cfg.Mail == nil {
		cfg.Mail = &MailConfig{}
	}

	set("JWT_SECRET", &cfg.SecretKey.Access)
	set("REFRESH_TOKEN_SECRET", &cfg.SecretKey.Refresh)
	set("REFRESH_TOKEN_EXPIRATION", &cfg.Auth.RefreshTokenTTL)
	set("ADMIN_EMAIL", &cfg.Admin.Email)
	set("ADMIN_NICK", &cfg.Admin.Nick)
	set("ADMIN_PASSWORD", &cfg.Admin.Password)
	set("FRONTEND_URL", &cfg.Mail.FrontendURL)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		cfg.Auth.AccessTokenTTL = defaultAccessTokenTTL
	}
	if strings.TrimSpace(cfg.Auth.RefreshTokenTTL) == "" {
		cfg.Auth.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if cfg.Auth.EmailVerificationTTL <= 0 {
		cfg.Auth.EmailVerificationTTL = defaultEmailVerificationTTL
	}
	if cfg.Auth.PasswordResetTTL <= 0 {
		cfg.Auth.PasswordResetTTL = defaultPasswordResetTTL
	}
	if cfg.Auth.RevokedRetention <= 0 {
		cfg.Auth.RevokedRetention = defaultRevokedRetention
	}

	if cfg.PasswordStrength == nil {
		cfg.PasswordStrength = &PasswordStrengthConfig{
			MinLength:        8,
			MaxLength:        72,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
		}
	}

	if cfg.RateLimit == nil {
		cfg.RateLimit = &RateLimitConfig{}
	}
	if cfg.RateLimit.Prefix == "" {
		cfg.RateLimit.Prefix = defaultRateLimitPrefix
	}
	if cfg.RateLimit.Policies == nil {
		cfg.RateLimit.Policies = map[string]RateLimitPolicy{}
	}
	for name, policy := range DefaultRateLimitPolicies() {
		if _, ok := cfg.RateLimit.Policies[name]; !ok {
			cfg.RateLimit.Policies[name] = policy
		}
	}

	if cfg.Mail == nil {
		cfg.Mail = &MailConfig{}
	}
	if cfg.Mail.Queue == "" {
		cfg.Mail.Queue = defaultMailQueue
	}
	if cfg.Mail.BrandName == "" {
		cfg.Mail.BrandName = defaultBrandName
	}
	cfg.Mail.FrontendURL = strings.TrimRight(cfg.Mail.FrontendURL, "/")

	if cfg.Admin == nil {
		cfg.Admin = &AdminConfig{}
	}
	if cfg.Admin.Nick == "" {
		cfg.Admin.Nick = defaultAdminNick
	}

	if cfg.Cleanup == nil {
		cfg.Cleanup = &CleanupConfig{}
	}
	if cfg.Cleanup.Interval <= 0 {
		cfg.Cleanup.Interval = defaultCleanupInterval
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNamespace
	}
}

// DefaultRateLimitPolicies returns the per-endpoint limits used when the
// config does not override them.
func DefaultRateLimitPolicies() map[string]RateLimitPolicy {
	return map[string]RateLimitPolicy{
		RateLimitLogin:              {Limit: 5, Window: time.Minute},
		RateLimitRegister:           {Limit: 3, Window: time.Minute},
		RateLimitResendVerification: {Limit: 3, Window: 5 * time.Minute},
		RateLimitForgotPassword:     {Limit: 3, Window: 5 * time.Minute},
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

// buildReplicasFromEnv reads POSTGRES_REPLICAS_{index}_{HOST,PORT,USERNAME,PASSWORD}
// until the first index without host or port.
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
