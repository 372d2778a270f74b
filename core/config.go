package core

import (
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

// Conf is set once by NewConfig and kept around for the few places
// (test helpers mostly) that cannot take an injected config.
var Conf *Config

type (
	ServerConfig struct {
		Host               string
		Port               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		// ObfuscateOwnership makes ownership failures answer "not found"
		// instead of "forbidden" so resource existence does not leak.
		ObfuscateOwnership bool
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	AIConfig struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	RateLimitConfig struct {
		MaxCalls int
		Window   time.Duration
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server    ServerConfig
		Database  DatabaseConfig
		AI        AIConfig
		RateLimit RateLimitConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the app configuration from env vars; a per-env .env file
// (config/.env.<env>) is loaded first if present.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "ChatGPA")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x1r)emq$+wgz&7dz!chatgpa(dev#secret*key^do-not-use")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("obfuscateOwnership", true)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "chatgpa")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("aiBaseURL", "https://api.deepseek.com/v1")
	v.SetDefault("aiApiKey", "")
	v.SetDefault("aiModel", "deepseek-chat")
	v.SetDefault("aiTimeout", 60*time.Second)

	v.SetDefault("rateLimitMaxCalls", 30)
	v.SetDefault("rateLimitWindow", time.Minute)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		WorkDir:         wd,
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Port:               v.GetString("serverPort"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ObfuscateOwnership: v.GetBool("obfuscateOwnership"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		AI: AIConfig{
			BaseURL: v.GetString("aiBaseURL"),
			APIKey:  v.GetString("aiApiKey"),
			Model:   v.GetString("aiModel"),
			Timeout: v.GetDuration("aiTimeout"),
		},
		RateLimit: RateLimitConfig{
			MaxCalls: v.GetInt("rateLimitMaxCalls"),
			Window:   v.GetDuration("rateLimitWindow"),
		},
	}

	Conf = conf
	return conf
}
