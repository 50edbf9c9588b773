package main

import (
	"context"
	"fmt"

	"cinetrail/api"
	"cinetrail/services/scheduler"
)

type sessionCleaner interface {
	Cleanup() (int, error)
}

type cachePruner interface {
	PruneCache() (int, error)
}

// registerJobs schedules the housekeeping that keeps on-disk state bounded.
func registerJobs(s *scheduler.Service, sessions sessionCleaner, cache cachePruner, limiter *api.IPRateLimiter) error {
	jobs := []scheduler.Job{
		{
			Name: "session-cleanup",
			Spec: "@every 1h",
			Run: func(context.Context) (string, error) {
				n, err := sessions.Cleanup()
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("removed %d expired sessions", n), nil
			},
		},
		{
			Name: "metadata-cache-prune",
			Spec: "@every 6h",
			Run: func(context.Context) (string, error) {
				n, err := cache.PruneCache()
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("removed %d cached responses", n), nil
			},
		},
		{
			Name: "login-limiter-prune",
			Spec: "@every 10m",
			Run: func(context.Context) (string, error) {
				return fmt.Sprintf("dropped %d idle clients", limiter.Prune(api.DefaultLimiterIdle)), nil
			},
		},
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}
