// Package containers lists and controls Docker containers through the docker
// CLI.
package containers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vesaa/talondash/internal/command"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidName   = errors.New("invalid container name")

	namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

// Action is a lifecycle operation on a container.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// ParseAction validates a user-supplied action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionStop, ActionRestart:
		return a, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidAction, s)
}

// Past returns the verb used in confirmation messages.
func (a Action) Past() string {
	if a == ActionStop {
		return "stopped"
	}
	return string(a) + "ed"
}

// Container is one row of `docker ps -a`.
type Container struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Image  string `json:"image"`
}

// Summary is the docker tile payload.
type Summary struct {
	Containers        []Container `json:"containers"`
	Images            []string    `json:"images"`
	RunningContainers int         `json:"runningContainers"`
	TotalContainers   int         `json:"totalContainers"`
	TotalImages       int         `json:"totalImages"`
}

// EmptySummary is reported when docker cannot be queried.
func EmptySummary() Summary {
	return Summary{Containers: []Container{}, Images: []string{}}
}

// Client talks to the docker CLI.
type Client struct {
	runner command.Runner
	path   string
}

// NewClient returns a Client using the docker binary at path.
func NewClient(runner command.Runner, path string) *Client {
	if path == "" {
		path = "docker"
	}
	return &Client{runner: runner, path: path}
}

// List returns every container and image.
func (c *Client) List(ctx context.Context) (Summary, error) {
	psOut, err := c.runner.Run(ctx, c.path, "ps", "-a", "--format", "{{.Names}}\t{{.Status}}\t{{.Image}}")
	if err != nil {
		return EmptySummary(), fmt.Errorf("listing containers: %w", err)
	}
	imgOut, err := c.runner.Run(ctx, c.path, "images", "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		return EmptySummary(), fmt.Errorf("listing images: %w", err)
	}

	s := EmptySummary()
	for _, line := range lines(psOut) {
		fields := strings.SplitN(line, "\t", 3)
		for len(fields) < 3 {
			fields = append(fields, "")
		}
		ctr := Container{Name: fields[0], Status: fields[1], Image: fields[2]}
		if strings.HasPrefix(ctr.Status, "Up") {
			s.RunningContainers++
		}
		s.Containers = append(s.Containers, ctr)
	}
	s.Images = append(s.Images, lines(imgOut)...)
	s.TotalContainers = len(s.Containers)
	s.TotalImages = len(s.Images)
	return s, nil
}

// Control runs `docker <action> <name>`.
func (c *Client) Control(ctx context.Context, action Action, name string) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	if _, err := c.runner.Run(ctx, c.path, string(action), name); err != nil {
		return fmt.Errorf("docker %s %s: %w", action, name, err)
	}
	return nil
}

func lines(out []byte) []string {
	var result []string
	for _, l := range strings.Split(string(out), "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			result = append(result, l)
		}
	}
	return result
}
