package config

const (
	EnvPrefix = "LEASEWISE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MatchModeExact   = "exact"
	MatchModeAtLeast = "at_least"
)

const (
	EnvAppEnv   = "LEASEWISE_APP_ENV"
	EnvPort     = "LEASEWISE_APP_PORT"
	EnvLogLevel = "LEASEWISE_LOG_LEVEL"

	EnvDBDSN    = "LEASEWISE_DB_DSN"
	EnvDBDriver = "LEASEWISE_DB_DRIVER"
	EnvDBHost   = "LEASEWISE_DB_HOST"
	EnvDBUser   = "LEASEWISE_DB_USER"
	EnvDBName   = "LEASEWISE_DB_NAME"

	EnvRedisURL = "LEASEWISE_REDIS_URL"

	EnvJWTSecret = "LEASEWISE_JWT_SECRET"
	EnvJWTIssuer = "LEASEWISE_JWT_ISSUER"

	EnvSchedulerTimezone  = "LEASEWISE_SCHEDULER_TIMEZONE"
	EnvSchedulerMatchMode = "LEASEWISE_NOTIFICATION_MATCH_MODE"
	EnvDispatchDelayMS    = "LEASEWISE_DISPATCH_DELAY_MS"
	EnvSMTPHost           = "LEASEWISE_SMTP_HOST"
	EnvSMSAccountSID      = "LEASEWISE_SMS_ACCOUNT_SID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
