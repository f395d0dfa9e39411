package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/spondex/internal/daemon"
	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/repositories"
	"github.com/desertthunder/spondex/internal/shared"
)

// Request is the RPC envelope the CLI sends.
type Request struct {
	Cmd    string            `json:"cmd"`
	Params map[string]string `json:"params,omitempty"`
}

// Response is the RPC envelope the daemon replies with.
type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// StatusReport is the status command payload.
type StatusReport struct {
	PID       int                    `json:"pid"`
	StartedAt time.Time              `json:"started_at"`
	UptimeSec float64                `json:"uptime_seconds"`
	Scheduler daemon.SchedulerStatus `json:"scheduler"`
	LastRun   *models.SyncRun        `json:"last_run,omitempty"`
	Mappings  int                    `json:"mappings"`
	Unmatched int                    `json:"unmatched"`
}

// Control bundles everything the RPC surface drives.
type Control struct {
	Scheduler *daemon.Scheduler
	Lifecycle *daemon.Lifecycle
	DB        *sql.DB
	StartedAt time.Time
}

func (c *Control) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("malformed request: %v", err)})
		return
	}

	resp := c.dispatch(r.Context(), req)
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusUnprocessableEntity
	}
	writeResponse(w, status, resp)
}

func (c *Control) dispatch(ctx context.Context, req Request) Response {
	switch req.Cmd {
	case "ping":
		return Response{OK: true, Data: "pong"}
	case "status":
		return c.status()
	case "health":
		return c.health(ctx)
	case "sync":
		return c.sync(ctx, req.Params)
	case "pause":
		c.Scheduler.Pause()
		return Response{OK: true, Data: "paused"}
	case "resume":
		c.Scheduler.Resume()
		return Response{OK: true, Data: "resumed"}
	case "shutdown":
		c.Lifecycle.RequestShutdown("rpc shutdown")
		return Response{OK: true, Data: "shutting down"}
	default:
		return Response{Error: fmt.Sprintf("unknown command %q", req.Cmd)}
	}
}

func (c *Control) status() Response {
	report := StatusReport{
		PID:       os.Getpid(),
		StartedAt: c.StartedAt,
		UptimeSec: time.Since(c.StartedAt).Seconds(),
		Scheduler: c.Scheduler.Status(),
	}

	runs := repositories.NewSyncRunRepository(c.DB)
	if history, err := runs.List(1); err == nil && len(history) > 0 {
		report.LastRun = history[0]
	}
	if n, err := repositories.NewMappingRepository(c.DB).Count(); err == nil {
		report.Mappings = n
	}
	if n, err := repositories.NewUnmatchedRepository(c.DB).Count(); err == nil {
		report.Unmatched = n
	}

	return Response{OK: true, Data: report}
}

func (c *Control) health(ctx context.Context) Response {
	if err := c.DB.PingContext(ctx); err != nil {
		return Response{Error: fmt.Sprintf("database unreachable: %v", err)}
	}
	return Response{OK: true, Data: map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(c.StartedAt).Seconds(),
	}}
}

func (c *Control) sync(ctx context.Context, params map[string]string) Response {
	mode := models.SyncMode(params["mode"])
	if params["mode"] != "" && !mode.Valid() {
		return Response{Error: fmt.Sprintf("unknown sync mode %q", params["mode"])}
	}

	// the run outlives the RPC request
	if err := c.Scheduler.TriggerNow(context.WithoutCancel(ctx), mode); err != nil {
		if errors.Is(err, shared.ErrSyncInProgress) {
			return Response{Error: shared.ErrSyncInProgress.Error()}
		}
		return Response{Error: err.Error()}
	}
	return Response{OK: true, Data: "sync started"}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
