// Package upstreamtest runs a fake launch provider for tests.
package upstreamtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// BaseUnix is the launch time of the first generated record
const BaseUnix int64 = 1143239400

// Record is one upstream launch as served by the fake
type Record map[string]any

// Records creates n launches ordered oldest to newest. Flight numbers run
// 1..n and launch_date_unix is BaseUnix + flight number * 1000.
func Records(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		flight := i + 1
		records[i] = Record{
			"flight_number":    flight,
			"launch_date_unix": LaunchUnix(flight),
			"mission_name":     "Mission " + strconv.Itoa(flight),
			"launch_site":      map[string]any{"site_id": "ksc_lc_39a", "site_name": "KSC LC 39A"},
			"links": map[string]any{
				"mission_patch":       "https://images.example.com/" + strconv.Itoa(flight) + "-large.png",
				"mission_patch_small": "https://images.example.com/" + strconv.Itoa(flight) + "-small.png",
			},
			"rocket": map[string]any{"rocket_id": "falcon9", "rocket_name": "Falcon 9", "rocket_type": "FT"},
		}
	}
	return records
}

// LaunchUnix is the launch_date_unix Records assigns to a flight number
func LaunchUnix(flight int) int64 {
	return BaseUnix + int64(flight)*1000
}

// Cursor is the normalized cursor of a generated flight
func Cursor(flight int) string {
	return strconv.FormatInt(LaunchUnix(flight), 10)
}

// Server serves GET /launches and GET /launches?flight_number=N
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	records []Record
	hits    map[string]int
	status  int
	body    string
	delay   func(flight string) time.Duration
}

// New starts a fake provider serving records and stops it when t ends
func New(t testing.TB, records []Record) *Server {
	t.Helper()
	s := Start(records)
	t.Cleanup(s.Close)
	return s
}

// Start starts a fake provider the caller must Close, for use from TestMain
func Start(records []Record) *Server {
	s := &Server{records: records, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Fail makes every later request answer with status and body
func (s *Server) Fail(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// SetDelay delays lookups by flight number, used to shuffle completion order
func (s *Server) SetDelay(delay func(flight string) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = delay
}

// Hits counts requests for a resource key such as "launches" or
// "launches?flight_number=3"
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

// TotalHits counts every request served
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	if q := r.URL.Query().Encode(); q != "" {
		key += "?" + q
	}
	flight := r.URL.Query().Get("flight_number")

	s.mu.Lock()
	s.hits[key]++
	status, body, delay, records := s.status, s.body, s.delay, s.records
	s.mu.Unlock()

	if delay != nil {
		time.Sleep(delay(flight))
	}

	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(body))
		return
	}
	if key != "launches" && !strings.HasPrefix(key, "launches?") {
		http.NotFound(w, r)
		return
	}

	out := records
	if flight != "" {
		out = []Record{}
		for _, record := range records {
			if n, ok := record["flight_number"].(int); ok && strconv.Itoa(n) == flight {
				out = append(out, record)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
