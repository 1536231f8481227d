package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/robfig/cron/v3"
)

// CronSchedule emits a CheckEvent every time its cron spec fires.
// Ticks that arrive while the previous event is still unconsumed are dropped.
type CronSchedule struct {
	spec     string
	timezone string
	cron     *cron.Cron
	events   chan core.CheckEvent
	stopOnce sync.Once
}

func NewCronSchedule(spec, timezone string) *CronSchedule {
	return &CronSchedule{
		spec:     spec,
		timezone: timezone,
	}
}

func (c *CronSchedule) Validate() error {
	if c.spec == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if _, err := cron.ParseStandard(c.spec); err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

func (c *CronSchedule) Start(ctx context.Context) (<-chan core.CheckEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan core.CheckEvent, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.spec, func() {
		select {
		case c.events <- core.CheckEvent{Name: c.spec, Timestamp: time.Now().UTC()}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

// Stop waits for a running tick to finish, then closes the event channel.
func (c *CronSchedule) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			<-c.cron.Stop().Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}
