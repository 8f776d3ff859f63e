package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Duplicate handling for a redelivered (account, cursor).
const (
	OnDuplicateReprocess = "reprocess"
	OnDuplicateSkip      = "skip"
)

// Policy holds the pipeline knobs that are read from the optional policy file.
type Policy struct {
	DefaultLabels    []string `mapstructure:"default_labels"`
	NeedsReplyLabels []string `mapstructure:"needs_reply_labels"`
	AlwaysReplyRoles []string `mapstructure:"always_reply_roles"`
	FinanceLabels    []string `mapstructure:"finance_labels"`

	StageTimeout  time.Duration `mapstructure:"stage_timeout"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	BatchDeadline time.Duration `mapstructure:"batch_deadline"`
	Concurrency   int           `mapstructure:"concurrency"`
	OnDuplicate   string        `mapstructure:"on_duplicate"`

	WorkerCount int `mapstructure:"worker_count"`
	QueueSize   int `mapstructure:"queue_size"`

	WatchRenewBefore   time.Duration `mapstructure:"watch_renew_before"`
	WatchCheckInterval time.Duration `mapstructure:"watch_check_interval"`
}

func setPolicyDefaults(v *viper.Viper) {
	v.SetDefault("default_labels", []string{"uncategorized"})
	v.SetDefault("needs_reply_labels", []string{"customer query", "inquiry", "question"})
	v.SetDefault("always_reply_roles", []string{"owner", "student"})
	v.SetDefault("finance_labels", []string{"expense", "income"})
	v.SetDefault("stage_timeout", "45s")
	v.SetDefault("fetch_timeout", "20s")
	v.SetDefault("batch_deadline", "5m")
	v.SetDefault("concurrency", 4)
	v.SetDefault("on_duplicate", OnDuplicateReprocess)
	v.SetDefault("worker_count", 2)
	v.SetDefault("queue_size", 100)
	v.SetDefault("watch_renew_before", "24h")
	v.SetDefault("watch_check_interval", "1h")
}

// DefaultPolicy returns the policy used when no file is configured.
func DefaultPolicy() Policy {
	p, _ := LoadPolicy("")
	return p
}

// LoadPolicy reads the policy file at path (yaml, toml or json) on top of the defaults.
// An empty path yields the defaults. Values can be overridden with PIPELINE_* env vars.
func LoadPolicy(path string) (Policy, error) {
	v := viper.New()
	setPolicyDefaults(v)
	v.SetEnvPrefix("pipeline")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Policy{}, fmt.Errorf("read policy file %s: %w", path, err)
		}
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return p.normalized(), nil
}

func (p Policy) normalized() Policy {
	p.NeedsReplyLabels = lowerAll(p.NeedsReplyLabels)
	p.AlwaysReplyRoles = lowerAll(p.AlwaysReplyRoles)
	p.FinanceLabels = lowerAll(p.FinanceLabels)
	p.OnDuplicate = strings.ToLower(strings.TrimSpace(p.OnDuplicate))
	if p.OnDuplicate != OnDuplicateSkip {
		p.OnDuplicate = OnDuplicateReprocess
	}
	if p.Concurrency < 1 {
		p.Concurrency = 1
	}
	if p.WorkerCount < 1 {
		p.WorkerCount = 1
	}
	if p.QueueSize < 1 {
		p.QueueSize = 1
	}
	return p
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
