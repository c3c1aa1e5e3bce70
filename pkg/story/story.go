// Package story holds the immutable story graph the engine traverses.
// A Story is supplied at engine construction and is read-only afterwards.
package story

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/arborlabs/arbor/pkg/domain"
)

// Story is an id-keyed graph of narrative nodes. Cycles are legal; the
// engine never walks the graph ahead of the player, so they cannot
// deadlock traversal.
type Story struct {
	ID    string                 `yaml:"id"`
	Title string                 `yaml:"title,omitempty"`
	Start string                 `yaml:"start"`
	Nodes map[string]domain.Node `yaml:"nodes"`
}

// Node returns the node for an ID.
// Returns domain.ErrNodeNotFound when the ID is not in the graph.
func (s *Story) Node(id string) (*domain.Node, error) {
	node, ok := s.Nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	return &node, nil
}

// NodeIDs returns all node IDs, sorted for stable introspection output.
func (s *Story) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load parses a YAML story definition.
func Load(r io.Reader) (*Story, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}

	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse story: %w", err)
	}

	// Node IDs may be declared only as map keys; backfill the field so
	// nodes are self-describing once handed to the engine.
	for id, node := range s.Nodes {
		if node.ID == "" {
			node.ID = id
			s.Nodes[id] = node
		} else if node.ID != id {
			return nil, fmt.Errorf("node keyed %q declares conflicting id %q", id, node.ID)
		}
	}

	return &s, nil
}

// LoadFile parses a YAML story definition from a path.
func LoadFile(path string) (*Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open story file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
