//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/trailercut/internal/ports/adapters/ffmpeg"
)

const cliTimeout = 30 * time.Second

// moduleRoot asks the go tool where go.mod lives, so tests work from any
// package directory.
func moduleRoot(t *testing.T) string {
	t.Helper()
	b, err := exec.Command("go", "env", "GOMOD").Output()
	if err != nil {
		t.Fatalf("go env GOMOD: %v", err)
	}
	gomod := strings.TrimSpace(string(b))
	if gomod == "" || gomod == os.DevNull {
		t.Fatalf("not inside a module")
	}
	return filepath.Dir(gomod)
}

// trailerSeconds measures a rendered file the way the pipeline does.
func trailerSeconds(t *testing.T, path string) float64 {
	t.Helper()
	d, err := ffmpeg.New("", "", zerolog.Nop()).ProbeDuration(context.Background(), path)
	if err != nil {
		t.Fatalf("measure %s: %v", path, err)
	}
	return d.Seconds()
}

// cliEnv is the process environment with colors and tty detection off and
// the given overrides applied in order.
func cliEnv(overrides ...map[string]string) []string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	env["NO_COLOR"] = "1"
	env["TERM"] = "dumb"
	for _, o := range overrides {
		maps.Copy(env, o)
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// trailercut runs the CLI from source and returns its exit code and the
// combined stdout and stderr.
func trailercut(t *testing.T, root string, env map[string]string, args ...string) (int, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "./cmd/trailercut"}, args...)...)
	cmd.Dir = root
	cmd.Env = cliEnv(env)
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("trailercut %s: timed out after %s", strings.Join(args, " "), cliTimeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, string(out)
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), string(out)
	default:
		t.Fatalf("trailercut %s: %v\n%s", strings.Join(args, " "), err, out)
		return 0, ""
	}
}

func describeArgs(args []string) string {
	return fmt.Sprintf("trailercut %s", strings.Join(args, " "))
}
