package sweep

import (
	"fmt"
	"log"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/config"
	"github.com/mechanicaltomato/fizzy/internal/engine"
)

// Result aggregates one sweep across all tenants.
type Result struct {
	Tenants        int
	TenantFailures int
	Counts         engine.SweepCounts
}

// Driver runs the lifecycle automaton across every tenant on each tick.
// Tenants are processed sequentially; within a tenant the two batch
// operations run in order, so two sweeps never race on the same card.
type Driver struct {
	Source Source
	Cfg    config.Config
	stopCh chan struct{}
}

// New creates a Driver over a tenant source.
func New(source Source, cfg config.Config) *Driver {
	return &Driver{Source: source, Cfg: cfg, stopCh: make(chan struct{})}
}

// Run executes one full sweep. A failure in one tenant is logged and
// counted; the remaining tenants are still processed.
func (d *Driver) Run() Result {
	var result Result

	tenants, err := d.Source.Tenants()
	if err != nil {
		log.Printf("sweep: enumerate tenants: %v", err)
		result.TenantFailures++
		return result
	}

	now := time.Now()
	for _, tenant := range tenants {
		result.Tenants++
		counts, err := d.sweepTenant(tenant, now)
		result.Counts.Add(counts)
		if err != nil {
			result.TenantFailures++
			log.Printf("sweep: tenant %s: %v", tenant.Name(), err)
		}
	}

	if result.Counts.Postponed > 0 || result.Counts.Reconsidered > 0 || result.TenantFailures > 0 {
		log.Printf("sweep: %d tenants, %d postponed, %d reconsidered, %d conflicts, %d failures",
			result.Tenants, result.Counts.Postponed, result.Counts.Reconsidered,
			result.Counts.Conflicts, result.TenantFailures)
	}
	return result
}

// sweepTenant runs both automaton operations inside one tenant's
// isolation boundary. A panic here is contained to the tenant.
func (d *Driver) sweepTenant(tenant Tenant, now time.Time) (counts engine.SweepCounts, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	db, err := tenant.Open()
	if err != nil {
		return counts, fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, d.Cfg)

	postponed, err := eng.AutoPostponeAllDue(now, engine.SystemActor)
	counts.Add(postponed)
	if err != nil {
		return counts, fmt.Errorf("auto postpone: %w", err)
	}

	reconsidered, err := eng.AutoReconsiderAllStagnated(now, engine.SystemActor)
	counts.Add(reconsidered)
	if err != nil {
		return counts, fmt.Errorf("auto reconsider: %w", err)
	}

	return counts, nil
}

// Start runs one sweep immediately and then on every interval tick until
// Stop is called. Runs never overlap: the ticker and the sweep share one
// goroutine.
func (d *Driver) Start(interval time.Duration) {
	d.Run()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.Run()
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the driver's background goroutine.
func (d *Driver) Stop() {
	close(d.stopCh)
}
