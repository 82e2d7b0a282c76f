package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Scheduler    SchedulerConfig
	Dispatch     DispatchConfig
	SMTP         SMTPConfig
	SMS          SMSConfig
	Reports      ReportsConfig
	Preferences  PreferencesConfig
	Rollback     RollbackConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEASEWISE_APP_ENV" required:"true"`
	Port         string `envconfig:"LEASEWISE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LEASEWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEASEWISE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"LEASEWISE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LEASEWISE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LEASEWISE_DB_DSN"`
	Driver string `envconfig:"LEASEWISE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEASEWISE_DB_HOST"`
	LegacyPort     int    `envconfig:"LEASEWISE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEASEWISE_DB_USER"`
	LegacyPassword string `envconfig:"LEASEWISE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEASEWISE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEASEWISE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEASEWISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEASEWISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEASEWISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEASEWISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

// RedisConfig is optional; workers fall back to an in-process lock when neither URL nor Address is set.
type RedisConfig struct {
	URL          string        `envconfig:"LEASEWISE_REDIS_URL"`
	Address      string        `envconfig:"LEASEWISE_REDIS_ADDR"`
	Password     string        `envconfig:"LEASEWISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEASEWISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEASEWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEASEWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEASEWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEASEWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEASEWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"LEASEWISE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LEASEWISE_JWT_ISSUER" required:"true"`

	ExpirationMinutes int `envconfig:"LEASEWISE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LEASEWISE_AUTO_MIGRATE" default:"false"`
}

// SchedulerConfig drives the worker triggers and the per-step timeouts of a report execution.
type SchedulerConfig struct {
	DailyHour     int           `envconfig:"LEASEWISE_SCHEDULER_DAILY_HOUR" default:"8"`
	DailyMinute   int           `envconfig:"LEASEWISE_SCHEDULER_DAILY_MINUTE" default:"0"`
	Timezone      string        `envconfig:"LEASEWISE_SCHEDULER_TIMEZONE" default:"UTC"`
	SweepInterval time.Duration `envconfig:"LEASEWISE_SCHEDULER_SWEEP_INTERVAL" default:"6h"`
	ClaimTTL      time.Duration `envconfig:"LEASEWISE_SCHEDULER_CLAIM_TTL" default:"15m"`
	LockTTL       time.Duration `envconfig:"LEASEWISE_SCHEDULER_LOCK_TTL" default:"30m"`
	RenderTimeout time.Duration `envconfig:"LEASEWISE_SCHEDULER_RENDER_TIMEOUT" default:"30s"`
	SendTimeout   time.Duration `envconfig:"LEASEWISE_SCHEDULER_SEND_TIMEOUT" default:"15s"`
	MatchMode     string        `envconfig:"LEASEWISE_NOTIFICATION_MATCH_MODE" default:"at_least"`
	MetricsAddr   string        `envconfig:"LEASEWISE_SCHEDULER_METRICS_ADDR" default:":9090"`
	RunOnStart    bool          `envconfig:"LEASEWISE_SCHEDULER_RUN_ON_START" default:"false"`
}

// Location resolves the configured IANA zone for the daily trigger.
func (s SchedulerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (s SchedulerConfig) validate() error {
	if s.DailyHour < 0 || s.DailyHour > 23 {
		return fmt.Errorf("scheduler daily hour must be 0-23, got %d", s.DailyHour)
	}
	if s.DailyMinute < 0 || s.DailyMinute > 59 {
		return fmt.Errorf("scheduler daily minute must be 0-59, got %d", s.DailyMinute)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("scheduler timezone: %w", err)
	}
	switch s.MatchMode {
	case MatchModeExact, MatchModeAtLeast:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSchedulerMatchMode, MatchModeExact, MatchModeAtLeast)
	}
	if s.SweepInterval <= 0 {
		return fmt.Errorf("scheduler sweep interval must be positive")
	}
	return nil
}

type DispatchConfig struct {
	DelayMS            int    `envconfig:"LEASEWISE_DISPATCH_DELAY_MS" default:"500"`
	DefaultCountryCode string `envconfig:"LEASEWISE_DISPATCH_DEFAULT_COUNTRY_CODE" default:"+27"`
}

// Delay returns the spacing enforced between consecutive sends.
func (d DispatchConfig) Delay() time.Duration {
	if d.DelayMS <= 0 {
		return 0
	}
	return time.Duration(d.DelayMS) * time.Millisecond
}

type SMTPConfig struct {
	Host     string `envconfig:"LEASEWISE_SMTP_HOST"`
	Port     int    `envconfig:"LEASEWISE_SMTP_PORT" default:"587"`
	Username string `envconfig:"LEASEWISE_SMTP_USERNAME"`
	Password string `envconfig:"LEASEWISE_SMTP_PASSWORD"`
	From     string `envconfig:"LEASEWISE_SMTP_FROM"`
}

type SMSConfig struct {
	AccountSID string `envconfig:"LEASEWISE_SMS_ACCOUNT_SID"`
	AuthToken  string `envconfig:"LEASEWISE_SMS_AUTH_TOKEN"`
	FromNumber string `envconfig:"LEASEWISE_SMS_FROM_NUMBER"`
}

type ReportsConfig struct {
	TrailingPeriods int    `envconfig:"LEASEWISE_REPORTS_TRAILING_PERIODS" default:"12"`
	BrandName       string `envconfig:"LEASEWISE_REPORTS_BRAND_NAME" default:"LeaseWise"`
}

type PreferencesConfig struct {
	MaxVersions int `envconfig:"LEASEWISE_PREFERENCES_MAX_VERSIONS" default:"20"`
}

type RollbackConfig struct {
	FailureThreshold int `envconfig:"LEASEWISE_ROLLBACK_FAILURE_THRESHOLD" default:"3"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

// RateLimitConfig throttles owner-triggered sends. A zero limit disables it.
type RateLimitConfig struct {
	TestSendWindow time.Duration `envconfig:"LEASEWISE_RATE_LIMIT_TEST_SEND_WINDOW" default:"1h"`
	TestSendLimit  int           `envconfig:"LEASEWISE_RATE_LIMIT_TEST_SEND_LIMIT" default:"10"`
}
