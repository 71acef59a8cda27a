package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		PasswordResetTimeoutDelta time.Duration
		DefaultFromEmail          mail.Address
		FrontendBaseURL           string
		RollbarToken              string
		SendgridAPIKey            string
		WorkDir                   string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CookieSecure              bool
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// StorageConfig holds everything needed to sign direct uploads to the object store.
	StorageConfig struct {
		AccessKeyID     string
		SecretAccessKey string
		Region          string
		Bucket          string
		DefaultACL      string
		PresignedExpiry time.Duration
		MaxSize         int64
		Endpoint        string // optional, for S3-compatible providers
	}

	RedisConfig struct {
		URL           string
		LoginAttempts int
		LoginWindow   time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate reports every missing storage setting at once.
func (c StorageConfig) Validate() error {
	var missing []string
	check := func(key string, ok bool) {
		if !ok {
			missing = append(missing, key)
		}
	}
	check("storage.access_key_id", c.AccessKeyID != "")
	check("storage.secret_access_key", c.SecretAccessKey != "")
	check("storage.region", c.Region != "")
	check("storage.bucket", c.Bucket != "")
	check("storage.default_acl", c.DefaultACL != "")
	check("storage.presigned_expiry", c.PresignedExpiry > 0)
	check("storage.max_size", c.MaxSize > 0)

	if len(missing) > 0 {
		return &ConfigError{Section: "storage", Missing: missing}
	}
	return nil
}

// NewConfig reads the configuration from the environment.
// Keys are prefixed with the ENV name (DEV by default), e.g. DEV_STORAGE_BUCKET.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "SIMS")
	v.SetDefault("secret_key", "k2#9vx@b!0qz_sims-dev-secret_7p^w5&r(t)y3u=e")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("default_from_email", "SIMS <noreply@localhost>")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_address", ":4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 15*time.Minute)
	v.SetDefault("server.jwt_refresh_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.disable_req_logs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "sims")
	v.SetDefault("database.user", "sims")
	v.SetDefault("database.password", "sims")
	v.SetDefault("database.admin_user", "")
	v.SetDefault("database.admin_password", "")
	v.SetDefault("database.disable_tls", false)

	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.default_acl", "private")
	v.SetDefault("storage.presigned_expiry", time.Hour)
	v.SetDefault("storage.max_size", int64(100<<20))
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.login_attempts", 5)
	v.SetDefault("redis.login_window", 15*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := ProjectRoot()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("default_from_email"))
	if err != nil {
		log.Fatalf("config.default_from_email: %v", err)
	}

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		AppName:                   v.GetString("app_name"),
		SecretKey:                 v.GetString("secret_key"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		DefaultFromEmail:          *fromEmail,
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontend_base_url"), "/"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridAPIKey:            v.GetString("sendgrid_api_key"),
		WorkDir:                   workDir,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debug_address"),
			ShutdownTimeout:           v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwt_refresh_expiration_delta"),
			CookieSecure:              v.GetBool("server.cookie_secure"),
			DisableReqLogs:            v.GetBool("server.disable_req_logs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.admin_user"),
			AdminPassword: v.GetString("database.admin_password"),
			DisableTLS:    v.GetBool("database.disable_tls"),
		},
		Storage: StorageConfig{
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			DefaultACL:      v.GetString("storage.default_acl"),
			PresignedExpiry: v.GetDuration("storage.presigned_expiry"),
			MaxSize:         v.GetInt64("storage.max_size"),
			Endpoint:        v.GetString("storage.endpoint"),
		},
		Redis: RedisConfig{
			URL:           v.GetString("redis.url"),
			LoginAttempts: v.GetInt("redis.login_attempts"),
			LoginWindow:   v.GetDuration("redis.login_window"),
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%t", c.AppName, c.Build, c.Env, c.Debug)
}
