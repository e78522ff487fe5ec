package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Duration decodes yaml values like "90s" or "1h30m"; yaml.v2 cannot put a
// scalar into time.Duration directly. Bare integers are nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("bad duration %q: %v", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := unmarshal(&ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url"` // empty: in-process presence store
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	Presence struct {
		ConversationTTL         Duration `yaml:"conversation_ttl"`          // prune horizon per conversation
		GlobalTTL               Duration `yaml:"global_ttl"`                // prune horizon globally
		ConversationQueryWindow Duration `yaml:"conversation_query_window"` // "who is online" horizon, >= TTL
		GlobalQueryWindow       Duration `yaml:"global_query_window"`
	} `yaml:"presence"`

	Notifications struct {
		DefaultHourlyLimit    int      `yaml:"default_hourly_limit"`
		DefaultDailyLimit     int      `yaml:"default_daily_limit"`
		ExpireDays            int      `yaml:"expire_days"`
		ReadRetentionDays     int      `yaml:"read_retention_days"`
		ArchivedRetentionDays int      `yaml:"archived_retention_days"`
		DedupWindow           Duration `yaml:"dedup_window"`
		JanitorInterval       Duration `yaml:"janitor_interval"`
	} `yaml:"notifications"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Environment-driven mode, used by deployments and tests.
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.Redis.URL = os.Getenv("REDIS_URL")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	p := &cfg.Presence
	if p.ConversationTTL == 0 {
		p.ConversationTTL = Duration(60 * time.Second)
	}
	if p.GlobalTTL == 0 {
		p.GlobalTTL = Duration(120 * time.Second)
	}
	if p.ConversationQueryWindow == 0 {
		p.ConversationQueryWindow = Duration(90 * time.Second)
	}
	if p.GlobalQueryWindow == 0 {
		p.GlobalQueryWindow = Duration(150 * time.Second)
	}
	// The query window must cover at least the prune horizon, otherwise an
	// observer could miss users the pruner still considers online.
	if p.ConversationQueryWindow < p.ConversationTTL {
		p.ConversationQueryWindow = p.ConversationTTL
	}
	if p.GlobalQueryWindow < p.GlobalTTL {
		p.GlobalQueryWindow = p.GlobalTTL
	}

	n := &cfg.Notifications
	if n.DefaultHourlyLimit == 0 {
		n.DefaultHourlyLimit = 100
	}
	if n.DefaultDailyLimit == 0 {
		n.DefaultDailyLimit = 1000
	}
	if n.ExpireDays == 0 {
		n.ExpireDays = 30
	}
	if n.ReadRetentionDays == 0 {
		n.ReadRetentionDays = 90
	}
	if n.ArchivedRetentionDays == 0 {
		n.ArchivedRetentionDays = 180
	}
	if n.DedupWindow == 0 {
		n.DedupWindow = Duration(5 * time.Minute)
	}
	if n.JanitorInterval == 0 {
		n.JanitorInterval = Duration(time.Hour)
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
