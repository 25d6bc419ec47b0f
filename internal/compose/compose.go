// Package compose parses and round-trips the single-service docker-compose
// file that defines a managed instance. It extracts exactly the fields the
// supervisor needs (container name, ports, memory setting, image tag) while
// carrying every other field through a round-trip with its content
// unchanged (formatting such as indentation and quoting is re-emitted by
// the encoder and may differ from the input), using
// gopkg.in/yaml.v3's node-based API the way the teacher's compose-adjacent
// YAML handling favors preserving unknown structure over a fixed struct.
package compose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
)

// File is a parsed compose project file. Raw holds the full YAML document
// tree so that Marshal reproduces anything this package doesn't understand.
type File struct {
	Raw *yaml.Node

	ContainerName  string
	Image          string
	JavaVersion    string
	GamePort       int
	RconPort       int
	MaxMemoryBytes int64
}

// memoryEnvPattern strips the "-Xmx" JVM flag prefix so the remaining size
// literal ("2G", "512m", ...) can be handed to go-units.
var memoryEnvPattern = regexp.MustCompile(`^-Xmx(\w+)$`)

// imageTagPattern pulls a leading integer out of an image tag like
// "itzg/minecraft-server:java21" or "...:21-jdk" to derive JavaVersion.
var imageTagPattern = regexp.MustCompile(`(\d+)`)

// Parse decodes a compose YAML document and extracts the fields the
// supervisor depends on. instanceID is used to validate container_name.
func Parse(data []byte, instanceID string) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, mcerrors.NewValidation("compose", fmt.Sprintf("invalid yaml: %v", err))
	}
	if len(root.Content) == 0 {
		return nil, mcerrors.NewValidation("compose", "empty document")
	}

	doc := root.Content[0]
	services := mapValue(doc, "services")
	if services == nil {
		return nil, mcerrors.NewValidation("compose", "missing top-level services key")
	}
	mc := mapValue(services, "mc")
	if mc == nil {
		return nil, mcerrors.NewValidation("compose", "missing services.mc entry")
	}

	f := &File{Raw: &root}

	f.ContainerName = scalarValue(mapValue(mc, "container_name"))
	expectedName := "mc-" + instanceID
	if f.ContainerName != expectedName {
		return nil, mcerrors.NewValidation("container_name", fmt.Sprintf("expected %q, got %q", expectedName, f.ContainerName))
	}

	f.Image = scalarValue(mapValue(mc, "image"))
	f.JavaVersion = deriveJavaVersion(f.Image)

	gamePort, rconPort, err := extractPorts(mc)
	if err != nil {
		return nil, err
	}
	if gamePort == rconPort {
		return nil, mcerrors.NewConflict("game port and rcon port must differ, both are %d", gamePort)
	}
	f.GamePort = gamePort
	f.RconPort = rconPort

	f.MaxMemoryBytes, err = extractMaxMemory(mc)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Marshal re-serializes the document tree, so any field this package didn't
// model keeps its content; the output formatting is the encoder's own.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f.Raw)
}

func deriveJavaVersion(image string) string {
	idx := strings.LastIndex(image, ":")
	if idx < 0 {
		return ""
	}
	tag := image[idx+1:]
	m := imageTagPattern.FindString(tag)
	return m
}

func extractPorts(mc *yaml.Node) (game, rcon int, err error) {
	ports := mapValue(mc, "ports")
	if ports == nil || ports.Kind != yaml.SequenceNode {
		return 0, 0, mcerrors.NewValidation("ports", "missing or not a list")
	}

	var values []int
	for _, item := range ports.Content {
		spec := scalarValue(item)
		values = append(values, parsePortMapping(spec)...)
	}
	if len(values) < 2 {
		return 0, 0, mcerrors.NewValidation("ports", "expected at least game and rcon ports")
	}
	// By convention the first published port is the game port, the second
	// is the rcon port. This matches the one-service "mc" layout the
	// supervisor requires.
	return values[0], values[1], nil
}

// parsePortMapping turns a compose port entry ("25565:25565" or
// "25565:25565/tcp") into the host-side port(s) it publishes; a bare
// "25565" names no host port and yields nothing. Parsing goes via the same nat.ParsePortSpecs docker-compose itself and the
// teacher's libs/go/docker use to interpret port strings.
func parsePortMapping(spec string) []int {
	_, bindings, err := nat.ParsePortSpecs([]string{spec})
	if err != nil {
		return nil
	}
	var ports []int
	for _, bs := range bindings {
		for _, b := range bs {
			if n, err := strconv.Atoi(b.HostPort); err == nil {
				ports = append(ports, n)
			}
		}
	}
	return ports
}

func extractMaxMemory(mc *yaml.Node) (int64, error) {
	env := mapValue(mc, "environment")
	if env == nil {
		return 0, nil
	}

	var entries []string
	switch env.Kind {
	case yaml.SequenceNode:
		for _, item := range env.Content {
			entries = append(entries, scalarValue(item))
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(env.Content); i += 2 {
			k := scalarValue(env.Content[i])
			v := scalarValue(env.Content[i+1])
			entries = append(entries, k+"="+v)
		}
	}

	for _, entry := range entries {
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if kv[0] != "JVM_OPTS" && kv[0] != "JAVA_OPTS" && kv[0] != "MEMORY" {
			continue
		}
		for _, field := range strings.Fields(kv[1]) {
			if bytes, ok := parseMemoryFlag(field); ok {
				return bytes, nil
			}
		}
		if bytes, ok := parseMemoryFlag(kv[1]); ok {
			return bytes, nil
		}
	}
	return 0, nil
}

func parseMemoryFlag(s string) (int64, bool) {
	m := memoryEnvPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := units.RAMInBytes(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func scalarValue(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	return node.Value
}
