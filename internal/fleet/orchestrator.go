package fleet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/tasfleet/internal/deviceconfig"
	"github.com/muurk/tasfleet/internal/logging"
	"github.com/muurk/tasfleet/internal/registry"
)

// DefaultConcurrency is the default number of devices worked on at once
const DefaultConcurrency = 64

// Result is the outcome of one operation against one device
type Result struct {
	Address  string
	OK       bool
	Response *deviceconfig.Response // Command replies only
	Err      error
}

// Operation runs against a single device. It reports failure through the
// returned Result rather than an error.
type Operation func(ctx context.Context, d *registry.Device) Result

// Orchestrator fans an operation out to many devices
type Orchestrator struct {
	// Concurrency caps the number of devices in flight (minimum 1)
	Concurrency int

	// OnResult, if set, is called as each device finishes. It may be
	// called from several goroutines at once.
	OnResult func(Result)
}

// NewOrchestrator creates an orchestrator with default concurrency
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{Concurrency: DefaultConcurrency}
}

// RunAll runs op once per device and returns one Result per device in input
// order. A failing or panicking device never affects the others.
func (o *Orchestrator) RunAll(ctx context.Context, devices []*registry.Device, op Operation) []Result {
	results := make([]Result, len(devices))
	if len(devices) == 0 {
		return results
	}

	limit := o.Concurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, device := range devices {
		g.Go(func() error {
			result := o.run(ctx, device, op)
			results[i] = result
			if o.OnResult != nil {
				o.OnResult(result)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// ErrNilDevice is the Result error for a nil entry in the device list
var ErrNilDevice = errors.New("nil device")

func (o *Orchestrator) run(ctx context.Context, device *registry.Device, op Operation) (result Result) {
	if device == nil {
		return Result{Err: ErrNilDevice}
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Address: device.Address,
				Err:     fmt.Errorf("operation panicked: %v", r),
			}
			logging.Error("Device operation panicked",
				zap.String("address", device.Address),
				zap.Any("panic", r),
			)
		}
	}()

	result = op(ctx, device)
	if result.Address == "" {
		result.Address = device.Address
	}
	return result
}

// Succeeded counts the successful results
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}

// Failed returns the unsuccessful results in order
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}
