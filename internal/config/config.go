package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		WebhookURL       string `env:"WEBHOOK_URL,required"`
		ServerName       string `env:"SERVER_NAME"`
		ServerIPWithPort string `env:"SERVER_IP"`
		DBPath           string `env:"DB_PATH,default=calladmin.db"`
		DotPath          string `env:"DOT_PATH,default=~/.calladmin"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		MetricsAddr      string `env:"METRICS_ADDR,default=:2112"`
		TickRateMs       int    `env:"TICK_RATE_MS,default=15"`

		CooldownSeconds int   `env:"COOLDOWN_SECONDS,default=30"`
		MaxInFlight     int64 `env:"MAX_IN_FLIGHT,default=8"`

		Report         Report
		CancelByAuthor Cancel
		CancelByStaff  StaffCancel
	}

	Report struct {
		DuplicateCheckEnabled  bool `env:"DUPLICATE_CHECK_ENABLED,default=true"`
		DuplicateWindowMinutes int  `env:"DUPLICATE_WINDOW_MINUTES,default=30"`
		MaximumReports         MaximumReports
	}

	// MaximumReports controls escalation against a suspect who keeps getting
	// reported. WindowMinutes: -1 disables the check, 0 accumulates without a
	// time bound, N counts only reports within N minutes of the first one.
	MaximumReports struct {
		Limit         int    `env:"MAX_REPORTS_LIMIT,default=3"`
		WindowMinutes int    `env:"MAX_REPORTS_WINDOW_MINUTES,default=0"`
		Action        int    `env:"MAX_REPORTS_ACTION,default=0"`
		BanMinutes    int    `env:"MAX_REPORTS_BAN_MINUTES,default=60"`
		Reason        string `env:"MAX_REPORTS_REASON,default=Too many reports"`
	}

	Cancel struct {
		Enabled           bool `env:"CANCEL_BY_AUTHOR_ENABLED,default=true"`
		MaxTimeMinutes    int  `env:"CANCEL_BY_AUTHOR_MAX_TIME_MINUTES,default=5"`
		DeleteFromChannel bool `env:"CANCEL_BY_AUTHOR_DELETE,default=true"`
	}

	StaffCancel struct {
		Enabled           bool   `env:"CANCEL_BY_STAFF_ENABLED,default=true"`
		MaxTimeMinutes    int    `env:"CANCEL_BY_STAFF_MAX_TIME_MINUTES,default=60"`
		DeleteFromChannel bool   `env:"CANCEL_BY_STAFF_DELETE,default=false"`
		Permission        string `env:"CANCEL_BY_STAFF_PERMISSION,default=@css/ban"`
	}
)

const (
	ActionNone = 0
	ActionKick = 1
	ActionBan  = 2
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("CA_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if strings.HasPrefix(cfg.DotPath, "~") {
			expanded, err := homedir.Expand(cfg.DotPath)
			if err != nil {
				globalErr = fmt.Errorf("expand dot path: %w", err)
				return
			}
			cfg.DotPath = expanded
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
