// internal/transport/ble/scan.go
package ble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// ErrNotFound is returned when a scan ends without a match.
var ErrNotFound = errors.New("ble: device not found")

// Discovered is one supported monitor seen during a scan.
type Discovered struct {
	Address string
	Name    string
	RSSI    int16
}

// Discover scans for d and returns every supported monitor seen, strongest first.
func Discover(ctx context.Context, d time.Duration) ([]Discovered, error) {
	adapter, err := Adapter()
	if err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	var mu sync.Mutex
	seen := map[string]Discovered{}

	_, err = scanFor(ctx, adapter, d, func(r bluetooth.ScanResult) bool {
		addr := strings.ToUpper(r.Address.String())
		if !IsSupported(addr) {
			return false
		}
		mu.Lock()
		seen[addr] = Discovered{Address: addr, Name: r.LocalName(), RSSI: r.RSSI}
		mu.Unlock()
		return false
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Discovered, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sortByRSSI(out)
	return out, nil
}

func sortByRSSI(ds []Discovered) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].RSSI > ds[j].RSSI })
}

// scanMu serializes scans; the adapter runs one at a time.
var scanMu sync.Mutex

// scanFor runs a scan until match returns true, ctx ends or d elapses.
// adapter.Scan blocks, so it is stopped from a timer goroutine.
func scanFor(ctx context.Context, adapter *bluetooth.Adapter, d time.Duration, match func(bluetooth.ScanResult) bool) (bluetooth.ScanResult, error) {
	scanMu.Lock()
	defer scanMu.Unlock()

	var (
		mu     sync.Mutex
		result bluetooth.ScanResult
		hit    bool
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		case <-stop:
			return
		}
		_ = adapter.StopScan()
	}()

	err := adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !match(r) {
			return
		}
		mu.Lock()
		result, hit = r, true
		mu.Unlock()
		_ = a.StopScan()
	})
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !hit {
		if ctx.Err() != nil {
			return bluetooth.ScanResult{}, ctx.Err()
		}
		return bluetooth.ScanResult{}, ErrNotFound
	}
	return result, nil
}
