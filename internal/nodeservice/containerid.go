package nodeservice

import (
	"fmt"
	"strconv"
	"strings"
)

// ContainerID identifies a container scheduled on this node. The lead
// container of an application carries sequence number 1 and is the one whose
// arrival and departure drive the application's collector lifecycle.
type ContainerID struct {
	App     string
	Attempt uint32
	Seq     uint64
}

// Lead reports whether this is the application's lead container.
func (c ContainerID) Lead() bool {
	return c.Seq == 1
}

func (c ContainerID) String() string {
	return fmt.Sprintf("container-%s-%02d-%06d", c.App, c.Attempt, c.Seq)
}

// ParseContainerID parses the canonical container id form
// "container-<app>-<attempt>-<seq>". The application id may itself contain
// dashes, so the attempt and sequence are taken from the right.
func ParseContainerID(s string) (ContainerID, error) {
	rest, ok := strings.CutPrefix(s, "container-")
	if !ok {
		return ContainerID{}, fmt.Errorf("container id %q must start with %q", s, "container-")
	}

	lastDash := strings.LastIndexByte(rest, '-')
	if lastDash < 0 {
		return ContainerID{}, fmt.Errorf("malformed container id %q", s)
	}
	seqStr := rest[lastDash+1:]
	rest = rest[:lastDash]

	lastDash = strings.LastIndexByte(rest, '-')
	if lastDash < 0 {
		return ContainerID{}, fmt.Errorf("malformed container id %q", s)
	}
	attemptStr := rest[lastDash+1:]
	app := rest[:lastDash]

	if app == "" {
		return ContainerID{}, fmt.Errorf("container id %q has an empty application id", s)
	}
	attempt, err := strconv.ParseUint(attemptStr, 10, 32)
	if err != nil {
		return ContainerID{}, fmt.Errorf("container id %q has a bad attempt: %w", s, err)
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return ContainerID{}, fmt.Errorf("container id %q has a bad sequence: %w", s, err)
	}

	return ContainerID{App: app, Attempt: uint32(attempt), Seq: seq}, nil
}
