// Package statsview serves live runtime charts (heap, goroutines, GC
// pauses) for a running frontend. A leaked frame clock shows up as a
// goroutine count that climbs with every ROM load.
//
// The server is compiled in only with the statsview build tag; without it
// Launch returns ErrUnavailable. Charts are drawn by
// github.com/go-echarts/statsview, which also mounts net/http/pprof.
package statsview

import "errors"

// DefaultAddress is used when Launch is given no address.
const DefaultAddress = "localhost:12600"

// chartsPath is where go-echarts/statsview mounts its page.
const chartsPath = "/debug/statsview"

// ErrUnavailable is returned by Launch in builds without the statsview tag.
var ErrUnavailable = errors.New("stats server not compiled in (build with -tags statsview)")

func pageURL(addr string) string {
	return "http://" + addr + chartsPath
}
