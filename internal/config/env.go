package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

func envLimit(prefix string, l *Limit) {
	if v, ok := getEnvInt(prefix + "_LIMIT"); ok {
		l.Limit = v
	}
	if v, ok := getEnvDur(prefix + "_WINDOW"); ok {
		l.Window = v
	}
}

// applyEnvOverrides: pisa el archivo con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// SECURITY
	if v, ok := getEnvStr("ENCRYPTION_KEY"); ok {
		c.Security.EncryptionKey = v
	}
	if v, ok := getEnvStr("INTEGRITY_KEY"); ok {
		c.Security.IntegrityKey = v
	}
	if v, ok := getEnvInt("BCRYPT_COST"); ok {
		c.Security.BcryptCost = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordBlacklistPath = strings.TrimSpace(v)
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvDur("JWT_TTL"); ok {
		c.JWT.TTL = v
	}

	// AUTH
	if v, ok := getEnvInt("OTP_EXPIRY_MINUTES"); ok && v > 0 {
		c.Auth.OTPTTL = time.Duration(v) * time.Minute
	}
	if v, ok := getEnvDur("SESSION_SWEEP_INTERVAL"); ok {
		c.Auth.SweepInterval = v
	}
	if v, ok := getEnvBool("AUTH_LOG_OTP"); ok {
		c.Auth.LogOTP = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	envLimit("RATE_LOGIN", &c.Rate.Login)
	envLimit("RATE_OTP", &c.Rate.OTP)
	envLimit("RATE_API", &c.Rate.API)
	envLimit("RATE_REGISTRATION", &c.Rate.Registration)

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	} else if v, ok := getEnvStr("SMTP_USER"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	} else if v, ok := getEnvStr("SMTP_PASS"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	} else if v, ok := getEnvStr("EMAIL_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}
	if v, ok := getEnvDur("EMAIL_TIMEOUT"); ok {
		c.Email.Timeout = v
	}

	// POLICY
	if v, ok := getEnvStr("REGISTRATION_START"); ok {
		c.Policy.RegistrationStart = v
	}
	if v, ok := getEnvStr("REGISTRATION_END"); ok {
		c.Policy.RegistrationEnd = v
	}
	if v, ok := getEnvStr("DROP_DEADLINE"); ok {
		c.Policy.DropDeadline = v
	}

	// BOOTSTRAP
	if v, ok := getEnvStr("ADMIN_USERNAME"); ok {
		c.Bootstrap.AdminUsername = v
	}
	if v, ok := getEnvStr("ADMIN_EMAIL"); ok {
		c.Bootstrap.AdminEmail = v
	}
	if v, ok := getEnvStr("ADMIN_PASSWORD"); ok {
		c.Bootstrap.AdminPassword = v
	}
}
