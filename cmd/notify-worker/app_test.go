package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/config"
	"github.com/rapidroute/shipbox/internal/notify"
	"github.com/rapidroute/shipbox/internal/services/dispatch"
)

type passTranslator struct{}

func (passTranslator) Translate(_ context.Context, text, _ string) string { return text }

func TestRunWorkerHTTPServer_OpsEndpoints(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	mailer := notify.NewMailer("", "", "admin@example.com", passTranslator{})
	d := dispatch.New(nil, nil, mailer, nil, nil, nil, nil, "notify.result", 1)

	cfg := &config.Config{}
	cfg.ShipBox.WorkerBatchSize = 25

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: sw,
			onListen:    func(a string) { addrCh <- a },
			dispatcher:  d,
			cfg:         cfg,
		})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + addr + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	code, body := get("/healthz")
	require.Equal(t, 200, code)
	require.Contains(t, body, "ok")

	code, body = get("/stats")
	require.Equal(t, 200, code)
	require.Contains(t, body, "dispatcher")

	code, body = get("/config")
	require.Equal(t, 200, code)
	require.Contains(t, body, "\"batchSize\":25")

	resp, err := http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(b), "triggered")

	code, body = get("/swagger.json")
	require.Equal(t, 200, code)
	require.Contains(t, body, "\"swagger\"")

	cancel()
	select {
	case <-srvErr:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	}
}

func TestRunWorkerHTTPServer_RequiresSwagger(t *testing.T) {
	err := runWorkerHTTPServer(context.Background(), workerHTTPOpts{httpAddr: "127.0.0.1:0"})
	require.Error(t, err)
}
