// Package packdoc loads a pack definition document (§6's YAML shape)
// into the in-memory records the orchestrator consumes, using yaml.v3.
package packdoc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/packforge/pkg/types"
)

// Load reads and parses a pack document from path.
func Load(path string) (types.PackDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PackDefinition{}, fmt.Errorf("packdoc: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a pack document from raw YAML bytes.
func Parse(data []byte) (types.PackDefinition, error) {
	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.PackDefinition{}, fmt.Errorf("packdoc: parse: %w", err)
	}

	nodes := make([]types.Node, 0, len(doc.Nodes))
	for i, rn := range doc.Nodes {
		n, err := rn.toNode()
		if err != nil {
			return types.PackDefinition{}, fmt.Errorf("packdoc: node %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return types.PackDefinition{Config: doc.Config, Nodes: nodes}, nil
}

type rawDocument struct {
	Config map[string]string `yaml:"config"`
	Nodes  []rawNode         `yaml:"nodes"`
}

// rawNode covers all three document entry shapes at once; toNode
// discriminates on which of Filename/Kind/Value was actually set,
// since the document carries no explicit node-kind tag.
type rawNode struct {
	ID       string            `yaml:"id"`
	Kind     string            `yaml:"kind"`
	Input    map[string]string `yaml:"input"`
	Value    yaml.Node         `yaml:"value"`
	Filename string            `yaml:"filename"`
	Source   string            `yaml:"source"`
}

func (rn rawNode) toNode() (types.Node, error) {
	switch {
	case rn.Filename != "":
		return types.Node{Kind: types.NodeKindOutput, Filename: rn.Filename, SourceID: rn.Source}, nil
	case rn.Kind != "":
		return types.Node{Kind: types.NodeKindStage, ID: rn.ID, StageKind: types.StageKind(rn.Kind), Input: rn.Input}, nil
	case rn.Value.Kind != 0:
		return rn.toSourceNode()
	default:
		return types.Node{}, fmt.Errorf("packdoc: node %q has none of filename/kind/value", rn.ID)
	}
}

func (rn rawNode) toSourceNode() (types.Node, error) {
	v := rn.Value
	switch v.Kind {
	case yaml.ScalarNode:
		var text string
		if err := v.Decode(&text); err != nil {
			return types.Node{}, fmt.Errorf("source %s: decode text value: %w", rn.ID, err)
		}
		return types.Node{Kind: types.NodeKindSource, ID: rn.ID, ValueKind: types.SourceValueText, Text: text}, nil

	case yaml.SequenceNode:
		if len(v.Content) == 0 || v.Content[0].Kind == yaml.ScalarNode {
			var list []string
			if err := v.Decode(&list); err != nil {
				return types.Node{}, fmt.Errorf("source %s: decode list value: %w", rn.ID, err)
			}
			return types.Node{Kind: types.NodeKindSource, ID: rn.ID, ValueKind: types.SourceValueList, List: list}, nil
		}

		var rawMods []rawModDef
		if err := v.Decode(&rawMods); err != nil {
			return types.Node{}, fmt.Errorf("source %s: decode mods value: %w", rn.ID, err)
		}
		mods := make([]types.ModDefinition, len(rawMods))
		for i, rm := range rawMods {
			m, err := rm.toModDefinition()
			if err != nil {
				return types.Node{}, fmt.Errorf("source %s: mod %d: %w", rn.ID, i, err)
			}
			mods[i] = m
		}
		return types.Node{Kind: types.NodeKindSource, ID: rn.ID, ValueKind: types.SourceValueMods, Mods: mods}, nil

	default:
		return types.Node{}, fmt.Errorf("source %s: unsupported value shape", rn.ID)
	}
}

// rawModDef is one entry of a Mods-kind source value: a user-declared
// mod reference tagged by which catalog it resolves against.
type rawModDef struct {
	Name      string `yaml:"name"`
	Side      string `yaml:"side"`
	Required  *bool  `yaml:"required"`
	Default   *bool  `yaml:"default"`
	Source    string `yaml:"source"`
	ProjectID string `yaml:"id"`
	FileID    string `yaml:"file_id"`
	Location  string `yaml:"location"`
	Filename  string `yaml:"filename"`
}

func (rm rawModDef) toModDefinition() (types.ModDefinition, error) {
	var source types.ModSource
	switch rm.Source {
	case "modrinth":
		source = types.ModSourceModrinth
	case "curse":
		source = types.ModSourceCurse
	case "url":
		source = types.ModSourceURL
	default:
		return types.ModDefinition{}, fmt.Errorf("mod %s: unknown source %q", rm.Name, rm.Source)
	}

	return types.ModDefinition{
		Name:      rm.Name,
		Side:      types.Side(rm.Side),
		Required:  rm.Required,
		Default:   rm.Default,
		Source:    source,
		ProjectID: rm.ProjectID,
		FileID:    rm.FileID,
		Location:  rm.Location,
		Filename:  rm.Filename,
	}, nil
}
