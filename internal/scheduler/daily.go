package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Daily runs a job on a cron expression in a fixed location. It exists for
// the once-a-day assignment run; the expression is standard five-field cron.
type Daily struct {
	name string
	c    *cron.Cron
}

func NewDaily(name, spec string, loc *time.Location, job func(context.Context)) (*Daily, error) {
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("daily job panic recovered", "job", name, "panic", r)
			}
		}()
		job(context.Background())
	}); err != nil {
		return nil, err
	}

	return &Daily{name: name, c: c}, nil
}

func (d *Daily) Start() {
	d.c.Start()
	slog.Info("daily job scheduled", "job", d.name)
}

// Stop prevents further runs and waits for an in-flight run to finish.
func (d *Daily) Stop() {
	ctx := d.c.Stop()
	<-ctx.Done()
	slog.Info("daily job stopped", "job", d.name)
}
