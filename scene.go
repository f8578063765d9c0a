package gekkoui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// SceneDef defines the initial UI tree.
//
//	nodes:
//	  - position: [20, 20]
//	    size: [300, 200]
//	    color: slategray
//	    children:
//	      - position: [10, 10]
//	        size: [80, 30]
//	        color: "#ff8800cc"
type SceneDef struct {
	Nodes []NodeDef `yaml:"nodes"`
}

// NodeDef is one rect. Position is relative to the parent node.
type NodeDef struct {
	Position [2]float32 `yaml:"position"`
	Size     [2]float32 `yaml:"size"`
	Color    NodeColor  `yaml:"color"`
	Children []NodeDef  `yaml:"children"`
}

// NodeColor accepts a color name, #rrggbb, #rrggbbaa, or a list of 3 or 4 floats.
type NodeColor mgl32.Vec4

func (c *NodeColor) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := parseColor(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*c = parsed
		return nil
	case yaml.SequenceNode:
		var channels []float32
		if err := value.Decode(&channels); err != nil {
			return err
		}
		switch len(channels) {
		case 3:
			*c = NodeColor{channels[0], channels[1], channels[2], 1}
		case 4:
			*c = NodeColor{channels[0], channels[1], channels[2], channels[3]}
		default:
			return fmt.Errorf("line %d: color needs 3 or 4 channels, got %d", value.Line, len(channels))
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported color value", value.Line)
	}
}

func parseColor(s string) (NodeColor, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 && len(hex) != 8 {
			return NodeColor{}, fmt.Errorf("color %q: expected #rrggbb or #rrggbbaa", s)
		}
		if len(hex) == 6 {
			hex += "ff"
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return NodeColor{}, fmt.Errorf("color %q: %w", s, err)
		}
		return NodeColor{
			float32(v>>24&0xff) / 255,
			float32(v>>16&0xff) / 255,
			float32(v>>8&0xff) / 255,
			float32(v&0xff) / 255,
		}, nil
	}

	named, ok := colornames.Map[s]
	if !ok {
		return NodeColor{}, fmt.Errorf("unknown color name %q", s)
	}
	return NodeColor{
		float32(named.R) / 255,
		float32(named.G) / 255,
		float32(named.B) / 255,
		float32(named.A) / 255,
	}, nil
}

func ParseScene(data []byte) (*SceneDef, error) {
	var scene SceneDef
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &scene, nil
}

func LoadSceneFile(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	return ParseScene(data)
}

// LoadScene spawns an entity per node and returns the root entities. Nodes
// are positioned by NodeLayoutSystem, which fills in GlobalPosition.
func LoadScene(cmd *Commands, scene *SceneDef) []EntityId {
	roots := make([]EntityId, 0, len(scene.Nodes))
	for _, def := range scene.Nodes {
		roots = append(roots, spawnNode(cmd, def, nil))
	}
	return roots
}

func spawnNode(cmd *Commands, def NodeDef, parent *EntityId) EntityId {
	components := []any{
		&Node{
			Size:  mgl32.Vec2(def.Size),
			Color: mgl32.Vec4(def.Color),
		},
		&LocalPosition{Offset: mgl32.Vec2(def.Position)},
	}
	if parent != nil {
		components = append(components, &Parent{Entity: *parent})
	}

	eid := cmd.AddEntity(components...)
	for _, child := range def.Children {
		spawnNode(cmd, child, &eid)
	}
	return eid
}
