package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MigrationsDir   string        `koanf:"migrations_dir"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Cart struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cart"`

	Rabbit struct {
		URL string `koanf:"url"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		StatusTopic string   `koanf:"status_topic"`
	} `koanf:"kafka"`

	Payment struct {
		Provider     string `koanf:"provider"` // "stripe" | "fake"
		StripeKey    string `koanf:"stripe_key"`
		Currency     string `koanf:"currency"`
		FakeSucceeds bool   `koanf:"fake_succeeds"`
	} `koanf:"payment"`

	Pricing struct {
		TaxRate      string `koanf:"tax_rate"`      // decimal string, e.g. "0.10"
		ShippingCost string `koanf:"shipping_cost"` // decimal string, e.g. "10.00"
	} `koanf:"pricing"`

	Email struct {
		SMTPHost string        `koanf:"smtp_host"`
		SMTPPort string        `koanf:"smtp_port"`
		Username string        `koanf:"username"`
		Password string        `koanf:"password"`
		From     string        `koanf:"from"`
		FromName string        `koanf:"from_name"`
		DedupTTL time.Duration `koanf:"dedup_ttl"`
	} `koanf:"email"`

	Worker struct {
		Prefetch    int           `koanf:"prefetch"`
		CallTimeout time.Duration `koanf:"call_timeout"`
		MaxAttempts int           `koanf:"max_attempts"` // 0 = retry forever
		MetricsAddr string        `koanf:"metrics_addr"`
	} `koanf:"worker"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix ECOM_, nested with __)
	// e.g. ECOM_MYSQL__DSN, ECOM_PAYMENT__STRIPE_KEY
	if err := k.Load(env.Provider("ECOM_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "ECOM_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Rabbit.URL == "" {
		return fmt.Errorf("rabbitmq.url required")
	}
	if c.Payment.Provider == "stripe" && c.Payment.StripeKey == "" {
		return fmt.Errorf("payment.stripe_key required when payment.provider=stripe")
	}
	return nil
}
