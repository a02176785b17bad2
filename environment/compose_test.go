//go:build !windows

package environment

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocker replaces the docker CLI with a shell script for the duration of a test, recording
// the arguments of each invocation.
func fakeDocker(t *testing.T, script string) *[][]string {
	var calls [][]string
	orig := execCommandContext
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	t.Cleanup(func() { execCommandContext = orig })
	return &calls
}

func TestComposeStarter(t *testing.T) {
	calls := fakeDocker(t, `printf 'one\ntwo\nthree\n'`)
	c := ComposeStarter{File: "docker-compose.e2e.yml", Project: "pets", Services: []string{"db", "api"}}
	assert.Equal(t, "docker compose -f docker-compose.e2e.yml -p pets up -d db api", c.Describe())

	h, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, h.LogTail(context.Background(), 2))
	require.NoError(t, h.Stop(context.Background()))

	require.Len(t, *calls, 3)
	assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.e2e.yml", "-p", "pets", "up", "-d", "db", "api"},
		(*calls)[0])
	assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.e2e.yml", "-p", "pets",
		"logs", "--no-color", "--tail", "2", "db", "api"}, (*calls)[1])
	assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.e2e.yml", "-p", "pets", "stop", "db", "api"},
		(*calls)[2])
}

func TestComposeStarterFailure(t *testing.T) {
	fakeDocker(t, `echo "no such service: api" >&2; exit 1`)
	c := ComposeStarter{File: "compose.yml", Services: []string{"api"}}

	_, err := c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such service: api")
}
