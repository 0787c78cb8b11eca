package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/items/internal/loadtest"
	"github.com/vladislavdragonenkov/items/internal/seeder"
	"github.com/vladislavdragonenkov/items/internal/service/httpapi"
	"github.com/vladislavdragonenkov/items/internal/storage/memory"
)

func newItemsServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(httpapi.NewRouter(memory.NewItemRepository(), httpapi.WithLogger(log.NewEntry(logger))))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedCommand(t *testing.T) {
	srv := newItemsServer(t)

	out, err := execute(t, "seed", "--target", srv.URL, "--seed-count", "3", "--delay", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded=3 failed=0")
	assert.Contains(t, out, "item_0_id=1")
	assert.Contains(t, out, "item_2_id=3")
}

func TestSeedCommand_InvalidTarget(t *testing.T) {
	_, err := execute(t, "seed", "--target", "not-a-url", "--seed-count", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, seeder.ErrInvalidConfig))
}

func TestRunCommand_WritesReport(t *testing.T) {
	srv := newItemsServer(t)
	path := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "run",
		"--target", srv.URL,
		"--mode", "crud",
		"--total", "6",
		"--concurrency", "2",
		"--output", path,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Load test summary")
	assert.Contains(t, out, "mode=crud")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report loadtest.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.EqualValues(t, 6, report.TotalScenarios)
	assert.Zero(t, report.FailedScenarios)
}

func TestRunCommand_FailedScenariosReturnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := execute(t, "run", "--target", srv.URL, "--total", "2", "--concurrency", "1")
	require.ErrorIs(t, err, errRunFailed)
	assert.True(t, strings.Contains(out, "failed=2"), out)
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	tests := [][]string{
		{"run", "--mode", "spike"},
		{"run", "--concurrency", "0"},
		{"run", "--total", "0"},
		{"--log-level", "loud", "run"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}
