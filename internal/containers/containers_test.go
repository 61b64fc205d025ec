package containers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/talondash/internal/command"
)

type scriptedRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := cmdLine(name, args...)
	r.calls = append(r.calls, line)
	if err, ok := r.errs[line]; ok {
		return []byte(r.outputs[line]), err
	}
	out, ok := r.outputs[line]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, command.ErrNotFound)
	}
	return []byte(out), nil
}

// cmdLine keys scripted responses by the full command line.
func cmdLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

const (
	psLine     = "docker ps -a --format {{.Names}}\t{{.Status}}\t{{.Image}}"
	imagesLine = "docker images --format {{.Repository}}:{{.Tag}}"
)

func TestList(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		psLine: strings.Join([]string{
			"web\tUp 3 hours\tnginx:1.25",
			"db\tExited (0) 2 days ago\tpostgres:16",
			"cache\tUp 5 minutes (healthy)\tredis:7",
			"",
		}, "\n"),
		imagesLine: "nginx:1.25\npostgres:16\nredis:7\n<none>:<none>\n",
	}}

	s, err := NewClient(r, "").List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalContainers)
	assert.Equal(t, 2, s.RunningContainers)
	assert.Equal(t, 4, s.TotalImages)
	assert.Equal(t, Container{Name: "db", Status: "Exited (0) 2 days ago", Image: "postgres:16"}, s.Containers[1])
}

func TestListNoContainers(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{psLine: "\n", imagesLine: ""}}

	s, err := NewClient(r, "").List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Containers)
	assert.NotNil(t, s.Containers)
	assert.Equal(t, 0, s.TotalContainers)
	assert.Equal(t, 0, s.TotalImages)
}

func TestListDockerMissing(t *testing.T) {
	s, err := NewClient(&scriptedRunner{}, "").List(context.Background())
	assert.ErrorIs(t, err, command.ErrNotFound)
	assert.Equal(t, EmptySummary(), s)
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"start", "STOP", " restart "} {
		_, err := ParseAction(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseAction("rm")
	assert.ErrorIs(t, err, ErrInvalidAction)

	assert.Equal(t, "started", ActionStart.Past())
	assert.Equal(t, "stopped", ActionStop.Past())
	assert.Equal(t, "restarted", ActionRestart.Past())
}

func TestControl(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{"docker restart web": "web\n"}}
	c := NewClient(r, "")

	require.NoError(t, c.Control(context.Background(), ActionRestart, "web"))
	assert.Equal(t, []string{"docker restart web"}, r.calls)
}

func TestControlRejectsBadInput(t *testing.T) {
	r := &scriptedRunner{}
	c := NewClient(r, "")

	err := c.Control(context.Background(), ActionStart, "web; rm -rf /")
	assert.ErrorIs(t, err, ErrInvalidName)
	err = c.Control(context.Background(), Action("kill"), "web")
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Empty(t, r.calls)
}

func TestControlCommandFailure(t *testing.T) {
	exitErr := &command.ExitError{Name: "docker", Code: 1, Stderr: "No such container: ghost"}
	r := &scriptedRunner{errs: map[string]error{"docker stop ghost": exitErr}}

	err := NewClient(r, "").Control(context.Background(), ActionStop, "ghost")
	require.Error(t, err)
	var target *command.ExitError
	assert.True(t, errors.As(err, &target))
	assert.Contains(t, err.Error(), "No such container")
}
