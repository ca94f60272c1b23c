// authorizer/config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Log           LogConfiguration
	Cache         CacheConfiguration
	Redis         RedisConfiguration
	Neo4j         DatabaseConfiguration
	Elasticsearch ElasticsearchConfiguration
	Token         TokenConfiguration
	Directory     DirectoryConfiguration
	Geo           GeoConfiguration
	Policy        PolicyConfiguration
	Risk          RiskConfiguration
	Extractor     ExtractorConfiguration
	CORS          CORSConfiguration `mapstructure:"cors"`
	Audit         AuditConfiguration
	Metrics       MetricsConfiguration
	RateLimit     RateLimitConfiguration
}

// ServerConfiguration selects how the decision service is hosted
type ServerConfiguration struct {
	Port string
	// Mode is "http" for the gin server or "lambda" for an API Gateway authorizer
	Mode string
	// ResourcePrefix enables in-process enforcement of /api/v1/whoami; resources are
	// ResourcePrefix + "/" + METHOD + path
	ResourcePrefix string
}

type LogConfiguration struct {
	Dir   string
	Level string
}

type CacheConfiguration struct {
	// Backend is "memory" (per instance) or "redis" (shared)
	Backend    string
	TokenTTL   time.Duration `mapstructure:"tokenTTL"`
	ProfileTTL time.Duration `mapstructure:"profileTTL"`
	GeoTTL     time.Duration `mapstructure:"geoTTL"`
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr          string
	Password      string
	DB            int `mapstructure:"db"`
	EncryptionKey string
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PoolSize      int
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string `mapstructure:"uri"`
	Username string
	Password string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string `mapstructure:"url"`
}

type TokenConfiguration struct {
	AllowDemo       bool
	DemoPrefix      string
	DemoEmailDomain string
	// Verification is "none", "jwks" or "hmac"
	Verification string
	JWKSURL      string        `mapstructure:"jwksURL"`
	JWKSRefresh  time.Duration `mapstructure:"jwksRefresh"`
	Issuer       string
	HMACSecret   string `mapstructure:"hmacSecret"`
}

type DirectoryConfiguration struct {
	// Backend is "cognito", "neo4j" or "fixture"
	Backend string
	Timeout time.Duration
	Cognito CognitoConfiguration
}

type CognitoConfiguration struct {
	UserPoolID string `mapstructure:"userPoolID"`
	Region     string
}

type GeoConfiguration struct {
	// Provider is "ipapi" or "table"
	Provider          string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerMinute int
	HomeCountry       string
}

type PolicyConfiguration struct {
	// Engine is "risk" or "group"
	Engine         string
	UTCOffsetHours int `mapstructure:"utcOffsetHours"`
	Maintenance    MaintenanceConfiguration
	GroupsFile     string
}

type MaintenanceConfiguration struct {
	Enabled bool
	Hour    int
}

type Thresholds struct {
	Allow     float64
	MFA       float64 `mapstructure:"mfa"`
	Extension float64
}

type RiskConfiguration struct {
	Thresholds        ThresholdConfiguration
	Tolerance         map[string]float64
	Departments       map[string]float64
	KnownDeviceCredit float64
}

type ThresholdConfiguration struct {
	Default Thresholds
	Roles   map[string]Thresholds
}

// ForRole returns the role override, or the default thresholds.
func (t ThresholdConfiguration) ForRole(role string) Thresholds {
	if th, ok := t.Roles[strings.ToLower(role)]; ok {
		return th
	}
	return t.Default
}

type ExtractorConfiguration struct {
	TrustTestIPHeader bool `mapstructure:"trustTestIPHeader"`
}

type CORSConfiguration struct {
	AllowPreflight bool
	AllowOrigin    string
	AllowHeaders   string
	AllowMethods   string
}

// ContextEntries returns the static CORS entries attached to verdict contexts.
func (c CORSConfiguration) ContextEntries() map[string]string {
	entries := make(map[string]string, 3)
	if c.AllowOrigin != "" {
		entries["Access-Control-Allow-Origin"] = c.AllowOrigin
	}
	if c.AllowHeaders != "" {
		entries["Access-Control-Allow-Headers"] = c.AllowHeaders
	}
	if c.AllowMethods != "" {
		entries["Access-Control-Allow-Methods"] = c.AllowMethods
	}
	return entries
}

type AuditConfiguration struct {
	Enabled bool
	Index   string
}

type MetricsConfiguration struct {
	Enabled bool
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
}

var config *Configuration

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "http")
	v.SetDefault("server.resourcePrefix", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.tokenTTL", "5m")
	v.SetDefault("cache.profileTTL", "5m")
	v.SetDefault("cache.geoTTL", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.encryptionKey", "")
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.poolSize", 10)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("elasticsearch.url", "http://localhost:9200")

	v.SetDefault("token.allowDemo", false)
	v.SetDefault("token.demoPrefix", "demo.")
	v.SetDefault("token.demoEmailDomain", "medisupply.com")
	v.SetDefault("token.verification", "none")
	v.SetDefault("token.jwksURL", "")
	v.SetDefault("token.jwksRefresh", "1h")
	v.SetDefault("token.issuer", "")
	v.SetDefault("token.hmacSecret", "")

	v.SetDefault("directory.backend", "fixture")
	v.SetDefault("directory.timeout", "3s")
	v.SetDefault("directory.cognito.userPoolID", "")
	v.SetDefault("directory.cognito.region", "us-east-1")

	v.SetDefault("geo.provider", "ipapi")
	v.SetDefault("geo.endpoint", "http://ip-api.com/json/")
	v.SetDefault("geo.timeout", "5s")
	v.SetDefault("geo.requestsPerMinute", 45)
	v.SetDefault("geo.homeCountry", "US")

	v.SetDefault("policy.engine", "risk")
	v.SetDefault("policy.utcOffsetHours", 0)
	v.SetDefault("policy.maintenance.enabled", true)
	v.SetDefault("policy.maintenance.hour", 4)
	v.SetDefault("policy.groupsFile", "config/groups.yaml")

	v.SetDefault("risk.thresholds.default.allow", 1.0)
	v.SetDefault("risk.thresholds.default.mfa", 1.5)
	v.SetDefault("risk.thresholds.default.extension", 0.2)
	v.SetDefault("risk.thresholds.roles", map[string]interface{}{})
	v.SetDefault("risk.tolerance", map[string]interface{}{"low": 0.5, "medium": 0.4, "high": 0.3})
	v.SetDefault("risk.departments", map[string]interface{}{"medical": 0.8, "management": 0.9})
	v.SetDefault("risk.knownDeviceCredit", 0.5)

	v.SetDefault("extractor.trustTestIPHeader", false)

	v.SetDefault("cors.allowPreflight", true)
	v.SetDefault("cors.allowOrigin", "*")
	v.SetDefault("cors.allowHeaders", "Content-Type,Authorization,X-Amz-Date,X-Api-Key,X-Amz-Security-Token,X-Requested-With,Accept,Origin")
	v.SetDefault("cors.allowMethods", "GET,POST,PUT,DELETE,OPTIONS")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.index", "authz-decisions")
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", "1m")
}

// Load reads configuration from v: defaults, then config/config.yaml, then the environment.
func Load(v *viper.Viper) (*Configuration, error) {
	v.AddConfigPath("config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return nil, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func InitConfig() error {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	config = cfg
	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
