//go:build statsview
// +build statsview

package statsview

import (
	"log"
	"sync"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

var (
	mu      sync.Mutex
	manager *statsview.ViewManager
	address string
)

// Launch starts the chart server on addr in the background and returns the
// page URL. A server already running is reused whatever addr says.
func Launch(addr string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if manager != nil {
		return pageURL(address), nil
	}
	if addr == "" {
		addr = DefaultAddress
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go func() {
		if err := mgr.Start(); err != nil {
			log.Printf("[STATS] server on %s stopped: %v", addr, err)
		}
	}()

	manager, address = mgr, addr
	return pageURL(addr), nil
}

// Stop shuts the server down. It is a no-op when nothing was launched.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	if manager == nil {
		return
	}
	manager.Stop()
	manager = nil
}
