package config

const EnvPrefix = "CHAPAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Storage backend identifiers accepted by ProductionConfig.
const (
	BackendSQL      = "sql"
	BackendRedis    = "redis"
	BackendWorkbook = "workbook"
	BackendMemory   = "memory"
)

const (
	EnvAppEnv   = "CHAPAS_APP_ENV"
	EnvPort     = "CHAPAS_APP_PORT"
	EnvLogLevel = "CHAPAS_LOG_LEVEL"

	EnvDBDSN    = "CHAPAS_DB_DSN"
	EnvDBDriver = "CHAPAS_DB_DRIVER"
	EnvDBHost   = "CHAPAS_DB_HOST"
	EnvDBUser   = "CHAPAS_DB_USER"
	EnvDBName   = "CHAPAS_DB_NAME"

	EnvRedisURL  = "CHAPAS_REDIS_URL"
	EnvRedisAddr = "CHAPAS_REDIS_ADDR"

	EnvCatalogPath     = "CHAPAS_CATALOG_PATH"
	EnvCutStepMM       = "CHAPAS_CUT_STEP_MM"
	EnvRecordsBackend  = "CHAPAS_RECORDS_BACKEND"
	EnvLotsBackend     = "CHAPAS_LOTS_BACKEND"
	EnvSessionsBackend = "CHAPAS_SESSIONS_BACKEND"
	EnvRetryAttempts   = "CHAPAS_RETRY_ATTEMPTS"
	EnvRetryBackoff    = "CHAPAS_RETRY_BACKOFF"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
