package dispatch

import "time"

// PlannerConfig — лестница ретраев для упавших уведомлений.
type PlannerConfig struct {
	Backoff1 time.Duration // default: 1 minute
	Backoff2 time.Duration // default: 5 minutes
	Backoff3 time.Duration // default: 15 minutes
	Backoff4 time.Duration // default: 60 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Backoff1: 1 * time.Minute,
		Backoff2: 5 * time.Minute,
		Backoff3: 15 * time.Minute,
		Backoff4: 60 * time.Minute,
	}
}

type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	return &Planner{cfg: cfg}
}

// BackoffDelay — задержка перед следующей попыткой. nextFailCount —
// номер неудачной попытки, начиная с 1.
func (p *Planner) BackoffDelay(nextFailCount int32) time.Duration {
	switch {
	case nextFailCount <= 1:
		return p.cfg.Backoff1
	case nextFailCount == 2:
		return p.cfg.Backoff2
	case nextFailCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}
