package worker

import (
	"github.com/pkg/errors"
)

// Role is the kind of query a worker issues.
type Role int

const (
	Select Role = iota
	Insert
	Update
	Delete
)

var roleNames = map[Role]string{
	Select: "READER",
	Insert: "INSERT",
	Update: "UPDATE",
	Delete: "DELETE",
}

// Roles returns every role in the order their log files are numbered.
func Roles() []Role {
	return []Role{Select, Insert, Update, Delete}
}

// String returns the name used for the role's log files and as the record type of its log lines.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, errors.Errorf("unknown worker role %q", s)
}

// State is a worker's position in its lifecycle. States only move forwards.
type State int32

const (
	Created State = iota
	AwaitingStart
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case AwaitingStart:
		return "awaiting-start"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
