package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeItemsServer отвечает на POST /items/ и падает на заданных номерах запросов.
type fakeItemsServer struct {
	mu       sync.Mutex
	requests int
	nextID   int64
	failAt   map[int]int
	bodies   []map[string]string
	field    string
}

func (f *fakeItemsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	index := f.requests
	f.requests++

	if r.Method != http.MethodPost || r.URL.Path != "/items/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies = append(f.bodies, body)

	if status, ok := f.failAt[index]; ok {
		w.WriteHeader(status)
		return
	}

	f.nextID++
	field := f.field
	if field == "" {
		field = "id"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{field: f.nextID, "name": body["name"]})
}

func newHookedLogger() (*log.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return log.NewEntry(logger), hook
}

func TestSeed_FailureAtIndexTwoIsSkipped(t *testing.T) {
	fake := &fakeItemsServer{failAt: map[int]int{2: http.StatusInternalServerError}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	logger, hook := newHookedLogger()
	report, err := Seed(context.Background(), Config{
		Target:    srv.URL,
		SeedCount: 5,
		Delay:     time.Millisecond,
		Timeout:   time.Second,
	}, WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 5)
	assert.Equal(t, map[int]int64{0: 1, 1: 2, 3: 3, 4: 4}, report.IDs())
	assert.Equal(t, 4, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.Outcomes[2].OK())
	assert.Contains(t, report.Outcomes[2].Err.Error(), "500")

	var errorEntries []*log.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.ErrorLevel {
			errorEntries = append(errorEntries, entry)
		}
	}
	require.Len(t, errorEntries, 1)
	assert.Equal(t, 2, errorEntries[0].Data["index"])

	assert.Equal(t, "Seeded Item 3", fake.bodies[3]["name"])
	assert.Equal(t, "Seeded item 3 for testing", fake.bodies[3]["description"])
}

func TestSeed_AcceptsItemIDField(t *testing.T) {
	srv := httptest.NewServer(&fakeItemsServer{field: "item_id"})
	defer srv.Close()

	logger, _ := newHookedLogger()
	report, err := Seed(context.Background(), Config{Target: srv.URL + "/", SeedCount: 2}, WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{0: 1, 1: 2}, report.IDs())
}

func TestSeed_MalformedBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	logger, hook := newHookedLogger()
	report, err := Seed(context.Background(), Config{Target: srv.URL, SeedCount: 3}, WithLogger(logger))
	require.NoError(t, err)
	assert.Empty(t, report.IDs())
	assert.Equal(t, 3, report.Failed())

	var errorCount int
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.ErrorLevel {
			errorCount++
		}
	}
	assert.Equal(t, 3, errorCount)
}

func TestSeed_TransportErrorContinues(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	logger, _ := newHookedLogger()
	report, err := Seed(context.Background(), Config{Target: target, SeedCount: 2, Timeout: time.Second}, WithLogger(logger))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 2, report.Failed())
}

func TestSeed_InvalidConfigAbortsBeforeLoop(t *testing.T) {
	fake := &fakeItemsServer{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "empty target", cfg: Config{SeedCount: 1}},
		{name: "relative target", cfg: Config{Target: "localhost:8000", SeedCount: 1}},
		{name: "zero seed count", cfg: Config{Target: srv.URL}},
		{name: "negative delay", cfg: Config{Target: srv.URL, SeedCount: 1, Delay: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Seed(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
	assert.Zero(t, fake.requests)
}

func TestSeed_PacingAppliesAfterFailures(t *testing.T) {
	fake := &fakeItemsServer{failAt: map[int]int{0: http.StatusBadRequest, 1: http.StatusBadRequest}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	logger, _ := newHookedLogger()
	start := time.Now()
	_, err := Seed(context.Background(), Config{Target: srv.URL, SeedCount: 3, Delay: 30 * time.Millisecond}, WithLogger(logger))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestSeed_CancelReturnsPartialReport(t *testing.T) {
	srv := httptest.NewServer(&fakeItemsServer{})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, _ := newHookedLogger()
	s, err := New(Config{Target: srv.URL, SeedCount: 100, Delay: time.Hour}, WithLogger(logger))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	report, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, map[int]int64{0: 1}, report.IDs())
}

func TestSeed_CancelDuringLastRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		requests int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()

		if n == 2 {
			cancel()
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id":%d}`, n)
	}))
	defer srv.Close()

	logger, _ := newHookedLogger()
	report, err := Seed(ctx, Config{Target: srv.URL, SeedCount: 2}, WithLogger(logger))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Outcomes, 2)
	assert.Equal(t, int64(1), report.IDs()[0])
}

func TestParseItemID(t *testing.T) {
	tests := []struct {
		body    string
		want    int64
		wantErr bool
	}{
		{body: `{"id":7}`, want: 7},
		{body: `{"item_id":8}`, want: 8},
		{body: `{"id":9,"item_id":10}`, want: 9},
		{body: `{"name":"x"}`, wantErr: true},
		{body: `{"id":"x"}`, wantErr: true},
		{body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			id, err := ParseItemID([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestRandomNumber_Inclusive(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := RandomNumber(1, 3)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 3)
		seen[n] = true
	}
	assert.Len(t, seen, 3, fmt.Sprintf("all values of [1,3] expected, got %v", seen))

	assert.Equal(t, 5, RandomNumber(5, 5))
	n := RandomNumber(10, 8)
	assert.True(t, n >= 8 && n <= 10)
}

func TestRandomNumber_WideRanges(t *testing.T) {
	tests := []struct {
		min, max int
	}{
		{min: 0, max: math.MaxInt},
		{min: math.MinInt, max: math.MaxInt},
		{min: math.MinInt, max: 0},
		{min: math.MaxInt, max: math.MinInt},
	}

	for _, tt := range tests {
		for i := 0; i < 100; i++ {
			var n int
			require.NotPanics(t, func() { n = RandomNumber(tt.min, tt.max) })
			lo, hi := min(tt.min, tt.max), max(tt.min, tt.max)
			require.True(t, n >= lo && n <= hi, "%d outside [%d, %d]", n, lo, hi)
		}
	}
}
