package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"adgen/internal/config"
	"adgen/internal/services/imaging"
	"adgen/internal/services/llm"
	"adgen/internal/services/renderer"
	"adgen/internal/stage"
)

const providerTimeout = 30 * time.Second

// CheckLLM verifies that the caption model is reachable and the key is valid.
// It makes a single attempt with no retries.
func CheckLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "Caption LLM"
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	client := llm.NewFromConfig(cfg, llm.WithRetryMaxAttempts(1))
	return fromHealth(ctx, name, client.HealthCheck)
}

// CheckImaging verifies that the image provider gateway answers.
func CheckImaging(ctx context.Context, cfg *config.Config) Result {
	const name = "Image provider"
	if strings.TrimSpace(cfg.Imaging.BaseURL) == "" {
		return Result{Name: name, Detail: "base_url missing"}
	}
	return fromHealth(ctx, name, imaging.NewFromConfig(cfg).HealthCheck)
}

// CheckRenderer verifies that the HTML renderer answers.
func CheckRenderer(ctx context.Context, cfg *config.Config) Result {
	const name = "Renderer"
	if strings.TrimSpace(cfg.Renderer.BaseURL) == "" {
		return Result{Name: name, Detail: "base_url missing"}
	}
	return fromHealth(ctx, name, renderer.NewFromConfig(cfg).HealthCheck)
}

func fromHealth(ctx context.Context, name string, check func(context.Context) stage.Health) Result {
	checkCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	started := time.Now()
	h := check(checkCtx)
	if !h.Ready {
		if checkCtx.Err() != nil {
			return Result{Name: name, Detail: summarizeError(checkCtx.Err())}
		}
		return Result{Name: name, Detail: h.Detail}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%s)", time.Since(started).Round(time.Millisecond))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (provider unreachable)"
	}
	return err.Error()
}
