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
	DB           DBConfig
	Redis        RedisConfig
	Catalog      CatalogConfig
	Production   ProductionConfig
	Retry        RetryConfig
	Access       AccessConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Production.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CHAPAS_APP_ENV" required:"true"`
	Port         string `envconfig:"CHAPAS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CHAPAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHAPAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"CHAPAS_DB_DSN"`
	Driver     string `envconfig:"CHAPAS_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"CHAPAS_DB_SQLITE_PATH" default:"chapas.db"`

	LegacyHost     string `envconfig:"CHAPAS_DB_HOST"`
	LegacyPort     int    `envconfig:"CHAPAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHAPAS_DB_USER"`
	LegacyPassword string `envconfig:"CHAPAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHAPAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHAPAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHAPAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHAPAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHAPAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHAPAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CHAPAS_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the embedded sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CHAPAS_REDIS_URL"`
	Address      string        `envconfig:"CHAPAS_REDIS_ADDR"`
	Password     string        `envconfig:"CHAPAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHAPAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHAPAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHAPAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHAPAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHAPAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHAPAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CatalogConfig struct {
	Path  string `envconfig:"CHAPAS_CATALOG_PATH" default:"base_sap.xlsx"`
	Sheet string `envconfig:"CHAPAS_CATALOG_SHEET"`
}

type ProductionConfig struct {
	CutStepMM       int           `envconfig:"CHAPAS_CUT_STEP_MM" default:"300"`
	RecordsBackend  string        `envconfig:"CHAPAS_RECORDS_BACKEND" default:"sql"`
	LotsBackend     string        `envconfig:"CHAPAS_LOTS_BACKEND" default:"sql"`
	SessionsBackend string        `envconfig:"CHAPAS_SESSIONS_BACKEND" default:"memory"`
	WorkbookPath    string        `envconfig:"CHAPAS_WORKBOOK_PATH" default:"chapas_producao.xlsx"`
	SessionTTL      time.Duration `envconfig:"CHAPAS_SESSION_TTL" default:"12h"`
}

func (p ProductionConfig) validate(redis RedisConfig) error {
	if !oneOf(p.RecordsBackend, BackendSQL, BackendWorkbook, BackendMemory) {
		return fmt.Errorf("unsupported records backend %q", p.RecordsBackend)
	}
	if !oneOf(p.LotsBackend, BackendSQL, BackendRedis, BackendMemory) {
		return fmt.Errorf("unsupported lots backend %q", p.LotsBackend)
	}
	if !oneOf(p.SessionsBackend, BackendRedis, BackendMemory) {
		return fmt.Errorf("unsupported sessions backend %q", p.SessionsBackend)
	}
	needsRedis := strings.EqualFold(p.LotsBackend, BackendRedis) || strings.EqualFold(p.SessionsBackend, BackendRedis)
	if needsRedis && !redis.Enabled() {
		return fmt.Errorf("%s or %s is required for redis backends", EnvRedisURL, EnvRedisAddr)
	}
	return nil
}

type MaintenanceConfig struct {
	Enabled  bool          `envconfig:"CHAPAS_MAINTENANCE_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"CHAPAS_MAINTENANCE_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"CHAPAS_MAINTENANCE_LOCK_TTL" default:"5m"`
}

type RetryConfig struct {
	Attempts int           `envconfig:"CHAPAS_RETRY_ATTEMPTS" default:"3"`
	Backoff  time.Duration `envconfig:"CHAPAS_RETRY_BACKOFF" default:"200ms"`
}

type AccessConfig struct {
	AdminKeyHash      string        `envconfig:"CHAPAS_ADMIN_KEY_HASH"`
	SuperAdminKeyHash string        `envconfig:"CHAPAS_SUPERADMIN_KEY_HASH"`
	FailureWindow     time.Duration `envconfig:"CHAPAS_ACCESS_FAILURE_WINDOW" default:"5m"`
	FailureLimit      int           `envconfig:"CHAPAS_ACCESS_FAILURE_LIMIT" default:"10"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CHAPAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CHAPAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CHAPAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CHAPAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CHAPAS_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CHAPAS_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CHAPAS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
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

func oneOf(value string, options ...string) bool {
	for _, option := range options {
		if strings.EqualFold(strings.TrimSpace(value), option) {
			return true
		}
	}
	return false
}
