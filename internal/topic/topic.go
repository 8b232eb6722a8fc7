// Package topic builds and parses the four canonical device topics.
package topic

import (
	"fmt"
	"strings"
)

// Kind identifies one of the four topics in a device's namespace.
type Kind string

const (
	KindState      Kind = "state"
	KindCommands   Kind = "commands"
	KindResponses  Kind = "responses"
	KindConnection Kind = "connection"
)

// DefaultPrefix is used when no topicPrefix is configured.
const DefaultPrefix = "amora/devices"

var validKinds = map[Kind]bool{
	KindState:      true,
	KindCommands:   true,
	KindResponses:  true,
	KindConnection: true,
}

// Build returns the canonical topic string for (prefix, deviceID, kind).
func Build(prefix, deviceID string, kind Kind) string {
	return fmt.Sprintf("%s/%s/%s", prefix, deviceID, kind)
}

// Parsed is the result of a successful Parse.
type Parsed struct {
	Prefix   string
	DeviceID string
	Kind     Kind
}

// Parse accepts a concrete topic and yields its (prefix, deviceID, kind), or
// an error if the topic isn't a recognized device topic. No wildcards are
// accepted; callers always parse exact topics delivered by the transport.
func Parse(t string) (Parsed, error) {
	parts := strings.Split(t, "/")
	if len(parts) < 3 {
		return Parsed{}, fmt.Errorf("topic: %q has too few segments", t)
	}

	kind := Kind(parts[len(parts)-1])
	deviceID := parts[len(parts)-2]
	prefix := strings.Join(parts[:len(parts)-2], "/")

	if !validKinds[kind] {
		return Parsed{}, fmt.Errorf("topic: %q has unknown kind %q", t, kind)
	}
	if deviceID == "" || prefix == "" {
		return Parsed{}, fmt.Errorf("topic: %q is missing prefix or deviceId", t)
	}

	return Parsed{Prefix: prefix, DeviceID: deviceID, Kind: kind}, nil
}

// Namespace is a convenience bundle of the four topics for one device.
type Namespace struct {
	Prefix   string
	DeviceID string
}

func (n Namespace) State() string      { return Build(n.Prefix, n.DeviceID, KindState) }
func (n Namespace) Commands() string   { return Build(n.Prefix, n.DeviceID, KindCommands) }
func (n Namespace) Responses() string  { return Build(n.Prefix, n.DeviceID, KindResponses) }
func (n Namespace) Connection() string { return Build(n.Prefix, n.DeviceID, KindConnection) }
