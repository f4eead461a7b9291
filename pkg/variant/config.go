package variant

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ZenLiuCN/fn"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Groups []*GroupConfig `yaml:"groups"`
}

type GroupConfig struct {
	Name             string         `yaml:"name"`
	Objects          []ObjectConfig `yaml:"objects"`
	Equal            string         `yaml:"equal,omitempty"`
	JumpTableOnClash bool           `yaml:"jump-table-on-clash,omitempty"`
	RemoveExecute    bool           `yaml:"remove-execute,omitempty"`
	Patterns         []string       `yaml:"patterns,omitempty"`
	Ignore           []string       `yaml:"ignore,omitempty"`
}

// ObjectConfig is a variant-contributing object. A nil Slot lets the
// matcher infer the slot from link order.
type ObjectConfig struct {
	Path string `yaml:"path"`
	Slot *int   `yaml:"slot,omitempty"`
}

func (o ObjectConfig) SlotIndex() int {
	if o.Slot == nil {
		return -1
	}
	return *o.Slot
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseObjectSpec parses "slot:path" or a bare path.
func ParseObjectSpec(spec string) (ObjectConfig, error) {
	if i := strings.IndexByte(spec, ':'); i > 0 {
		slot, err := strconv.Atoi(spec[:i])
		if err == nil {
			if spec[i+1:] == "" {
				return ObjectConfig{}, fmt.Errorf("variant object %q has no path", spec)
			}
			return ObjectConfig{Path: spec[i+1:], Slot: &slot}, nil
		}
	}
	if spec == "" {
		return ObjectConfig{}, fmt.Errorf("empty variant object")
	}
	return ObjectConfig{Path: spec}, nil
}

// Group returns the group called name, creating it if needed.
func (c *Config) Group(name string) *GroupConfig {
	for _, g := range c.Groups {
		if g.Name == name {
			return g
		}
	}
	g := &GroupConfig{Name: name}
	c.Groups = append(c.Groups, g)
	return g
}

func (c *Config) Empty() bool {
	return len(c.Groups) == 0
}

func (c *Config) Validate() error {
	names := make(map[string]bool)
	objects := make(map[string]string)

	for _, g := range c.Groups {
		if g.Name == "" {
			return configError("", "group without a name")
		}
		if names[g.Name] {
			return configError(g.Name, "group defined more than once")
		}
		names[g.Name] = true

		slots := make(map[int]bool)
		inferred := 0
		for _, obj := range g.Objects {
			path := filepath.Clean(obj.Path)
			if other, ok := objects[path]; ok {
				return configError(g.Name, "object %s already belongs to group %s", obj.Path, other)
			}
			objects[path] = g.Name

			switch slot := obj.SlotIndex(); {
			case obj.Slot != nil && slot < 0:
				return configError(g.Name, "object %s has negative slot %d", obj.Path, slot)
			case slot < 0:
				inferred++
			default:
				slots[slot] = true
			}
		}

		if len(slots)+inferred < 2 {
			return configError(g.Name, "a variant group needs at least two slots")
		}
		if inferred == 0 && !slots[0] {
			keys := fn.MapKeys(slots)
			sort.Ints(keys)
			return configError(g.Name, "no object for the default slot 0 (slots %v)", keys)
		}
	}
	return nil
}

func configError(group, format string, args ...any) *LinkError {
	return &LinkError{
		Kind:   InvalidConfig,
		Group:  group,
		Detail: fmt.Sprintf(format, args...),
	}
}
