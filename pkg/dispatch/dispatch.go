// Package dispatch signals bin decisions to the embedded sorter device.
//
// The sorter exposes a single HTTP endpoint: GET /sort?bin=<category>.
// The device firmware does not produce a readable response, so a dispatch
// is fire-and-forget: success means the request left without a
// transport-level failure. Dispatch never returns an error; every outcome
// is reported as a human-readable status string.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/binsight/go-binsight/internal/httpc"
	"github.com/binsight/go-binsight/internal/log"
	"github.com/binsight/go-binsight/pkg/classify"
)

// signalPath is the fixed path on the sorter device.
const signalPath = "/sort"

// signalTimeout keeps a dead device from stalling the loop. The sorter is
// on the local network; anything slower than this is unreachable.
const signalTimeout = 2 * time.Second

// Dispatcher sends sort signals to a configurable sorter address.
// The address is read at dispatch time, so it can be reconfigured
// between loop iterations.
type Dispatcher struct {
	mu      sync.RWMutex
	address string

	client *http.Client
}

// New creates a dispatcher for the given sorter address.
// An empty address is allowed; dispatch short-circuits until one is set.
func New(address string) *Dispatcher {
	return &Dispatcher{
		address: address,
		client:  httpc.NewClient(signalTimeout),
	}
}

// SetAddress updates the sorter address.
func (d *Dispatcher) SetAddress(address string) {
	d.mu.Lock()
	d.address = strings.TrimSpace(address)
	d.mu.Unlock()
}

// Address returns the current sorter address.
func (d *Dispatcher) Address() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.address
}

// NormalizeAddress prepends the default scheme when the address has none.
// Empty input stays empty.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	if !strings.Contains(address, "://") {
		return "http://" + address
	}
	return address
}

// SignalURL builds the sorter signal URL for a category.
func SignalURL(address string, category classify.Category) string {
	return fmt.Sprintf("%s%s?bin=%s", NormalizeAddress(address), signalPath, category.Bin())
}

// Dispatch signals the category to the sorter and returns a status string.
// NotApplicable and Error are never dispatched. Transport failures are
// reported in the status, never escalated.
func (d *Dispatcher) Dispatch(ctx context.Context, category classify.Category) string {
	if !category.Dispatchable() {
		return fmt.Sprintf("skipped %s: nothing to sort", category)
	}

	address := d.Address()
	if address == "" {
		return "sorter not configured"
	}

	url := SignalURL(address, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("signal failed: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warn("sorter signal failed", "url", url, "error", err)
		return fmt.Sprintf("signal failed: %v", err)
	}
	// The device response is not part of the contract. Drain and close so
	// the connection can be reused; ignore status code and body.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	log.Debug("sorter signaled", "bin", category.Bin(), "url", url)
	return fmt.Sprintf("signaled %s bin", category.Bin())
}
