package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Storage   StorageConfig
	Clova     ClovaConfig
	OneWon    OneWonConfig
	Apick     ApickConfig
	EzPG      EzPGConfig
	Bizm      BizmConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	PublicOrigin   string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	AutoMigrate  bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// SecurityConfig holds shared secrets for service-to-service calls.
type SecurityConfig struct {
	AdminToken        string
	InternalCallToken string
}

// StorageConfig controls where uploaded documents live.
type StorageConfig struct {
	UploadDir        string
	MaxFileSize      int64
	MaxContractFiles int
}

// ClovaConfig configures the CLOVA eKYC id-card endpoint.
type ClovaConfig struct {
	IDCardURL     string
	SecretHeader  string
	Secret        string
	APIKey        string
	FileField     string
	Timeout       time.Duration
	TestMode      bool
	MinConfidence float64
	QualityGuard  bool
	Quality       QualityThresholds
}

// QualityThresholds bound the optional image quality metrics.
type QualityThresholds struct {
	MinFaceConfidence float64
	MaxAngleDeg       float64
	MinDocCoverage    float64
	MaxGlare          float64
	MinSharpness      float64
	MinBrightness     float64
	MaxBrightness     float64
}

// OneWonConfig configures the 1-won account verification vendor.
type OneWonConfig struct {
	BaseURL      string
	SecretHeader string
	Secret       string
	APIKey       string
	VerifyPath   string
	ConfirmPath  string
	DefaultText  string
	Timeout      time.Duration
	TestMode     bool
}

// ApickConfig configures APICK registry issuance and account realname lookup.
type ApickConfig struct {
	BaseURL      string
	AuthKey      string
	IssuePath    string
	DownloadPath string
	RealnamePath string
	Timeout      time.Duration
	TestMode     bool
	PollAttempts int
	PollInterval time.Duration
}

// EzPGConfig configures the EzPG hosted payment page.
type EzPGConfig struct {
	Mode         string
	MID          string
	MerchantKey  string
	BaseURL      string
	RequestPath  string
	ApprovalPath string
	ReturnURL    string
	SuccessURL   string
	FailURL      string
	Timeout      time.Duration
	TestMode     bool
}

// BizmConfig configures Alimtalk delivery.
type BizmConfig struct {
	BaseURL    string
	UserID     string
	SenderKey  string
	TemplateID string
	Timeout    time.Duration
	Enabled    bool
	TestMode   bool
}

// RateLimitConfig bounds abuse-prone endpoints.
type RateLimitConfig struct {
	SignupPerHour      int
	OneWonStartPerHour int
}

// JobsConfig holds background job schedules.
type JobsConfig struct {
	BacklogCron string
}

// Load loads configuration from environment variables
func Load() *Config {
	publicOrigin := strings.TrimRight(getEnv("SELF_ORIGIN", "http://localhost:8080"), "/")
	ezpgMode := strings.ToLower(getEnv("EZPG_MODE", "test"))

	apickTimeout := getEnvAsDuration("APICK_TIMEOUT", 15*time.Second)
	if apickTimeout < time.Second {
		apickTimeout = time.Second
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			PublicOrigin:   publicOrigin,
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "kailospay"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRES", 24*time.Hour),
		},
		Security: SecurityConfig{
			AdminToken:        getEnv("ADMIN_TOKEN", ""),
			InternalCallToken: getEnv("INTERNAL_CALL_TOKEN", ""),
		},
		Storage: StorageConfig{
			UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:      int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
			MaxContractFiles: getEnvAsInt("CONTRACT_MAX_FILES", 10),
		},
		Clova: ClovaConfig{
			IDCardURL:     getEnv("CLOVA_EKYC_IDCARD_FULL", ""),
			SecretHeader:  getEnv("CLOVA_EKYC_SECRET_HEADER", "X-SECRET-KEY"),
			Secret:        getEnv("CLOVA_EKYC_SECRET", ""),
			APIKey:        getEnv("CLOVA_EKYC_APIGW_API_KEY", ""),
			FileField:     getEnv("CLOVA_EKYC_FILE_FIELD", "file"),
			Timeout:       getEnvAsDuration("CLOVA_EKYC_TIMEOUT", 15*time.Second),
			TestMode:      getEnvAsBool("EKYC_TEST_MODE", false),
			MinConfidence: getEnvAsFloat("EKYC_MIN_CONFIDENCE", 0.7),
			QualityGuard:  getEnvAsBool("EKYC_QUALITY_GUARD", false),
			Quality: QualityThresholds{
				MinFaceConfidence: getEnvAsFloat("EKYC_MIN_FACE_CONF", 0.90),
				MaxAngleDeg:       getEnvAsFloat("EKYC_MAX_ANGLE_DEG", 12),
				MinDocCoverage:    getEnvAsFloat("EKYC_MIN_DOC_COVER", 0.30),
				MaxGlare:          getEnvAsFloat("EKYC_MAX_GLARE", 0.35),
				MinSharpness:      getEnvAsFloat("EKYC_MIN_SHARPNESS", 0.35),
				MinBrightness:     getEnvAsFloat("EKYC_MIN_BRIGHTNESS", 0.25),
				MaxBrightness:     getEnvAsFloat("EKYC_MAX_BRIGHTNESS", 0.85),
			},
		},
		OneWon: OneWonConfig{
			BaseURL:      strings.TrimRight(getEnv("CLOVA_1WON_ACCOUNT_BASE", ""), "/"),
			SecretHeader: getEnv("CLOVA_1WON_SECRET_HEADER", "X-EKYC-SECRET"),
			Secret:       getEnv("CLOVA_1WON_SECRET", ""),
			APIKey:       getEnv("CLOVA_1WON_APIGW_API_KEY", ""),
			VerifyPath:   getEnv("CLOVA_1WON_VERIFY_PATH", "/account/verify"),
			ConfirmPath:  getEnv("CLOVA_1WON_CONFIRM_PATH", "/account/confirm"),
			DefaultText:  getEnv("CLOVA_1WON_TEXT", "KP"),
			Timeout:      getEnvAsDuration("CLOVA_1WON_TIMEOUT", 30*time.Second),
			TestMode:     getEnvAsBool("ONEWON_TEST_MODE", false),
		},
		Apick: ApickConfig{
			BaseURL:      strings.TrimRight(getEnv("APICK_BASE", "https://apick.app"), "/"),
			AuthKey:      getEnv("APICK_CL_AUTH_KEY", ""),
			IssuePath:    getEnv("APICK_ISSUE_PATH", "/rest/iros/2"),
			DownloadPath: getEnv("APICK_DOWNLOAD_PATH", "/rest/iros_download/2"),
			RealnamePath: getEnv("APICK_REALNAME_PATH", "/rest/account_realname"),
			Timeout:      apickTimeout,
			TestMode:     getEnvAsBool("APICK_TEST_MODE", false),
			PollAttempts: getEnvAsInt("APICK_POLL_ATTEMPTS", 5),
			PollInterval: getEnvAsDuration("APICK_POLL_INTERVAL", 2*time.Second),
		},
		EzPG: EzPGConfig{
			Mode:         ezpgMode,
			MID:          getEnv("EZPG_MID", ""),
			MerchantKey:  getEnv("EZPG_MERCHANT_KEY", ""),
			BaseURL:      getEnv("EZPG_BASE_URL", ezpgBaseURL(ezpgMode)),
			RequestPath:  getEnv("EZPG_REQUEST_PATH", "/payment/v1/view/request"),
			ApprovalPath: getEnv("EZPG_APPROVAL_PATH", "/payment/v1/approval"),
			ReturnURL:    getEnv("EZPG_RETURN_URL", publicOrigin+"/api/payments/gateway/return"),
			SuccessURL:   getEnv("PAYMENT_SUCCESS_URL", "/pay/success"),
			FailURL:      getEnv("PAYMENT_FAIL_URL", "/pay/fail"),
			Timeout:      getEnvAsDuration("EZPG_TIMEOUT", 15*time.Second),
			TestMode:     getEnvAsBool("EZPG_TEST_MODE", false),
		},
		Bizm: BizmConfig{
			BaseURL:    strings.TrimRight(getEnv("BIZM_BASE_URL", "https://alimtalk-api.bizmsg.kr"), "/"),
			UserID:     getEnv("BIZM_USER_ID", ""),
			SenderKey:  getEnv("BIZM_SENDER_KEY", ""),
			TemplateID: getEnv("BIZM_TEMPLATE_ID", "julyupay7"),
			Timeout:    getEnvAsDuration("BIZM_TIMEOUT", 10*time.Second),
			Enabled:    getEnvAsBool("BIZM_ENABLED", false),
			TestMode:   getEnvAsBool("BIZM_TEST_MODE", false),
		},
		RateLimit: RateLimitConfig{
			SignupPerHour:      getEnvAsInt("RATE_LIMIT_SIGNUP_PER_HOUR", 20),
			OneWonStartPerHour: getEnvAsInt("RATE_LIMIT_ONEWON_START_PER_HOUR", 5),
		},
		Jobs: JobsConfig{
			BacklogCron: getEnv("BACKLOG_CRON", "@every 1m"),
		},
	}
}

func ezpgBaseURL(mode string) string {
	if mode == "prod" || mode == "production" {
		return "https://api.ezpgpayment.com"
	}
	return "https://testapp.ezpgpayment.com"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or plain milliseconds ("15000").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
