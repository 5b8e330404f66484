package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adgen/internal/api"
	"adgen/internal/config"
)

// DaemonProbe reports whether a daemon answers on the configured bind address.
type DaemonProbe struct {
	Running bool
	PID     int
	Address string
	Health  api.HealthResponse
	Err     string
}

// ProbeDaemon reads the daemon pid file and queries the unauthenticated
// health endpoint.
func ProbeDaemon(ctx context.Context, cfg *config.Config) DaemonProbe {
	probe := DaemonProbe{Address: strings.TrimSpace(cfg.Paths.APIBind)}
	if data, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, "adgen.pid")); err == nil {
		probe.PID, _ = strconv.Atoi(strings.TrimSpace(string(data)))
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, "http://"+probe.Address+"/api/health", nil)
	if err != nil {
		probe.Err = err.Error()
		return probe
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		probe.Err = err.Error()
		return probe
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		probe.Err = fmt.Sprintf("health endpoint returned %d", resp.StatusCode)
		return probe
	}
	if err := json.NewDecoder(resp.Body).Decode(&probe.Health); err != nil {
		probe.Err = fmt.Sprintf("decode health: %v", err)
		return probe
	}
	probe.Running = true
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p DaemonProbe) Detail() string {
	if !p.Running {
		if p.Err != "" {
			return fmt.Sprintf("not reachable at %s (%s)", p.Address, p.Err)
		}
		return "not running"
	}
	detail := fmt.Sprintf("%s on %s, %d running / %d tracked jobs", p.Health.Status, p.Address, p.Health.RunningJobs, p.Health.TrackedJobs)
	if p.PID > 0 {
		detail += fmt.Sprintf(" (pid %d)", p.PID)
	}
	return detail
}
