package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Limit struct {
	Limit  int           `yaml:"limit" toml:"limit"`
	Window time.Duration `yaml:"window" toml:"window"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env  string `yaml:"env" toml:"env"`
		Name string `yaml:"name" toml:"name"`
	} `yaml:"app" toml:"app"`

	Server struct {
		Addr               string        `yaml:"addr" toml:"addr"`
		ReadTimeout        time.Duration `yaml:"read_timeout" toml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout" toml:"write_timeout"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
		// TrustedProxies: IPs o CIDRs cuyo X-Forwarded-For se respeta.
		// Vacío = se usa siempre la IP del socket.
		TrustedProxies []string `yaml:"trusted_proxies" toml:"trusted_proxies"`
	} `yaml:"server" toml:"server"`

	Storage struct {
		Driver      string `yaml:"driver" toml:"driver"` // postgres | memory
		DSN         string `yaml:"dsn" toml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate" toml:"auto_migrate"`
		Postgres    struct {
			MaxOpenConns int `yaml:"max_open_conns" toml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns" toml:"max_idle_conns"`
		} `yaml:"postgres" toml:"postgres"`
	} `yaml:"storage" toml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind" toml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr" toml:"addr"`
			Password string `yaml:"password" toml:"password"`
			DB       int    `yaml:"db" toml:"db"`
			Prefix   string `yaml:"prefix" toml:"prefix"`
		} `yaml:"redis" toml:"redis"`
		// SessionTTL acota cuánto vive una sesión validada en cache.
		SessionTTL time.Duration `yaml:"session_ttl" toml:"session_ttl"`
	} `yaml:"cache" toml:"cache"`

	Security struct {
		// base64 (std o raw) o hex de 32 bytes.
		EncryptionKey string `yaml:"encryption_key" toml:"encryption_key"`
		// >= 32 bytes.
		IntegrityKey   string `yaml:"integrity_key" toml:"integrity_key"`
		BcryptCost     int    `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length" toml:"min_length"`
			RequireUpper  bool `yaml:"require_upper" toml:"require_upper"`
			RequireLower  bool `yaml:"require_lower" toml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit" toml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol" toml:"require_symbol"`
		} `yaml:"password_policy" toml:"password_policy"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path" toml:"password_blacklist_path"`
	} `yaml:"security" toml:"security"`

	JWT struct {
		Issuer string        `yaml:"issuer" toml:"issuer"`
		Secret string        `yaml:"secret" toml:"secret"`
		TTL    time.Duration `yaml:"ttl" toml:"ttl"`
	} `yaml:"jwt" toml:"jwt"`

	Auth struct {
		OTPTTL         time.Duration `yaml:"otp_ttl" toml:"otp_ttl"`
		TempSessionTTL time.Duration `yaml:"temp_session_ttl" toml:"temp_session_ttl"`
		SessionTTL     time.Duration `yaml:"session_ttl" toml:"session_ttl"`
		SweepInterval  time.Duration `yaml:"sweep_interval" toml:"sweep_interval"`
		// LogOTP escribe el OTP en el log. Se fuerza a false en prod.
		LogOTP bool `yaml:"log_otp" toml:"log_otp"`
	} `yaml:"auth" toml:"auth"`

	Rate struct {
		Enabled      bool  `yaml:"enabled" toml:"enabled"`
		Login        Limit `yaml:"login" toml:"login"`
		OTP          Limit `yaml:"otp" toml:"otp"`
		API          Limit `yaml:"api" toml:"api"`
		Registration Limit `yaml:"registration" toml:"registration"`
	} `yaml:"rate" toml:"rate"`

	SMTP struct {
		Host               string `yaml:"host" toml:"host"`
		Port               int    `yaml:"port" toml:"port"`
		Username           string `yaml:"username" toml:"username"`
		Password           string `yaml:"password" toml:"password"`
		From               string `yaml:"from" toml:"from"`
		TLS                string `yaml:"tls" toml:"tls"`                                   // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp" toml:"smtp"`

	Email struct {
		Timeout time.Duration `yaml:"timeout" toml:"timeout"`
		AppName string        `yaml:"app_name" toml:"app_name"`
	} `yaml:"email" toml:"email"`

	// Policy: valores iniciales de las ventanas (RFC 3339). Vacío => default
	// relativo al arranque.
	Policy struct {
		RegistrationStart string `yaml:"registration_start" toml:"registration_start"`
		RegistrationEnd   string `yaml:"registration_end" toml:"registration_end"`
		DropDeadline      string `yaml:"drop_deadline" toml:"drop_deadline"`
	} `yaml:"policy" toml:"policy"`

	Log struct {
		Level string `yaml:"level" toml:"level"`
	} `yaml:"log" toml:"log"`

	Bootstrap struct {
		AdminUsername string `yaml:"admin_username" toml:"admin_username"`
		AdminEmail    string `yaml:"admin_email" toml:"admin_email"`
		AdminPassword string `yaml:"admin_password" toml:"admin_password"`
		Demo          bool   `yaml:"demo" toml:"demo"`
	} `yaml:"bootstrap" toml:"bootstrap"`
}

// Default devuelve la configuración por defecto con overrides de entorno,
// sin leer archivos.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load lee YAML o TOML (por extensión), aplica defaults, env y valida.
// Con path vacío sólo usa defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(b), &c); err != nil {
				return nil, fmt.Errorf("config: toml: %w", err)
			}
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: yaml: %w", err)
			}
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Normalizar ruta de blacklist (si relativa) respecto al archivo de config
	if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Security.PasswordBlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}
	return &c, nil
}

// sane defaults
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "registrar"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxOpenConns == 0 {
		c.Storage.Postgres.MaxOpenConns = 20
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "registrar:"
	}
	if c.Cache.SessionTTL == 0 {
		c.Cache.SessionTTL = 5 * time.Minute
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 12
	}
	pp := &c.Security.PasswordPolicy
	if pp.MinLength == 0 {
		pp.MinLength = 8
		pp.RequireUpper, pp.RequireLower, pp.RequireDigit, pp.RequireSymbol = true, true, true, true
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.App.Name
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Auth.OTPTTL == 0 {
		c.Auth.OTPTTL = 5 * time.Minute
	}
	if c.Auth.TempSessionTTL == 0 {
		c.Auth.TempSessionTTL = 30 * time.Minute
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Auth.SweepInterval == 0 {
		c.Auth.SweepInterval = 10 * time.Minute
	}
	setLimit(&c.Rate.Login, 50, 15*time.Minute)
	setLimit(&c.Rate.OTP, 3, 5*time.Minute)
	setLimit(&c.Rate.API, 100, time.Minute)
	setLimit(&c.Rate.Registration, 20, time.Hour)
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Email.Timeout == 0 {
		c.Email.Timeout = 10 * time.Second
	}
	if c.Email.AppName == "" {
		c.Email.AppName = "Course Registration"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Guardia dura: en prod nunca se loguea el OTP.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Auth.LogOTP = false
	}
}

func setLimit(l *Limit, n int, w time.Duration) {
	if l.Limit == 0 {
		l.Limit = n
	}
	if l.Window == 0 {
		l.Window = w
	}
}

// IsProd reporta si corre en prod.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }
