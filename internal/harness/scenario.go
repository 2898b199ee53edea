package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nodelink/internal/ir"
)

// Scenario describes a sequence of link operations against one scene and
// the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Scene is the CUE scene file, relative to the scenario file.
	Scene string `yaml:"scene"`

	// TxPrefix prefixes the deterministic transaction IDs. Default "tx".
	TxPrefix string `yaml:"tx_prefix,omitempty"`

	Options Options `yaml:"options,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions are checked against the scene after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Options configure the Linker the scenario runs with.
type Options struct {
	// AutoDisconnect defaults to true when omitted.
	AutoDisconnect    *bool `yaml:"auto_disconnect,omitempty"`
	PruneDanglingLegs bool  `yaml:"prune_dangling_legs,omitempty"`
}

// Step is one operation. Exactly one of the operation fields is set.
// Each step runs in its own transaction.
type Step struct {
	Connect    *ConnectStep    `yaml:"connect,omitempty"`
	Disconnect *DisconnectStep `yaml:"disconnect,omitempty"`
	Insert     *InsertStep     `yaml:"insert,omitempty"`
	Remove     *RemoveStep     `yaml:"remove,omitempty"`
	Undo       *UndoStep       `yaml:"undo,omitempty"`

	// ExpectError is the error code the step must fail with, e.g.
	// PORT_OCCUPIED. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ConnectStep links From to To. Ports may be "?" to pick a free one.
type ConnectStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// CreatePorts defaults to true when omitted.
	CreatePorts *bool `yaml:"create_ports,omitempty"`
}

// DisconnectStep removes the connection feeding To. When From is set,
// only a connection from From is removed.
type DisconnectStep struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to"`
}

// InsertStep splices Node into the connection feeding To.
type InsertStep struct {
	To      string `yaml:"to"`
	Node    string `yaml:"node"`
	InPort  int    `yaml:"in_port"`
	OutPort int    `yaml:"out_port"`
}

// RemoveStep deletes Node, bypassing it when it is a pass-through.
type RemoveStep struct {
	Node string `yaml:"node"`
}

// UndoStep reverts the transaction of an earlier step, by 1-based index.
type UndoStep struct {
	Step int `yaml:"step"`
}

// Action names the operation the step performs.
func (s Step) Action() string {
	switch {
	case s.Connect != nil:
		return ActionConnect
	case s.Disconnect != nil:
		return ActionDisconnect
	case s.Insert != nil:
		return ActionInsert
	case s.Remove != nil:
		return ActionRemove
	case s.Undo != nil:
		return ActionUndo
	}
	return ""
}

func (s Step) operations() int {
	n := 0
	for _, set := range []bool{s.Connect != nil, s.Disconnect != nil, s.Insert != nil, s.Remove != nil, s.Undo != nil} {
		if set {
			n++
		}
	}
	return n
}

// Step actions.
const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionInsert     = "insert"
	ActionRemove     = "remove"
	ActionUndo       = "undo"
)

// Assertion checks the final scene.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// From and To are endpoints (link_exists, link_absent, structural_link).
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Node, In and Out describe expected port counts (port_count).
	Node string `yaml:"node,omitempty"`
	In   *int   `yaml:"in,omitempty"`
	Out  *int   `yaml:"out,omitempty"`

	// Op and Count describe expected journal size (mutation_count).
	Op    string `yaml:"op,omitempty"`
	Count *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLinkExists     = "link_exists"
	AssertLinkAbsent     = "link_absent"
	AssertStructuralLink = "structural_link"
	AssertPortCount      = "port_count"
	AssertFanIn          = "fan_in"
	AssertMutationCount  = "mutation_count"
)

// LoadScenario reads and parses a scenario YAML file. The scene path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the scene path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the scene path BEFORE validation
	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) && basePath != "" {
		scenario.Scene = filepath.Join(basePath, scenario.Scene)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Scene == "" {
		return fmt.Errorf("scene is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := os.Stat(s.Scene); os.IsNotExist(err) {
		return fmt.Errorf("scene file not found: %s", s.Scene)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	switch s.operations() {
	case 0:
		return fmt.Errorf("steps[%d]: one of connect, disconnect, insert, remove, undo is required", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: only one operation per step", index)
	}

	switch {
	case s.Connect != nil:
		if err := checkEndpoint(index, "connect.from", s.Connect.From); err != nil {
			return err
		}
		return checkEndpoint(index, "connect.to", s.Connect.To)
	case s.Disconnect != nil:
		if s.Disconnect.From != "" {
			if err := checkEndpoint(index, "disconnect.from", s.Disconnect.From); err != nil {
				return err
			}
		}
		return checkEndpoint(index, "disconnect.to", s.Disconnect.To)
	case s.Insert != nil:
		if s.Insert.Node == "" {
			return fmt.Errorf("steps[%d]: insert.node is required", index)
		}
		if s.Insert.InPort < 0 || s.Insert.OutPort < 0 {
			return fmt.Errorf("steps[%d]: insert ports must be non-negative", index)
		}
		return checkEndpoint(index, "insert.to", s.Insert.To)
	case s.Remove != nil:
		if s.Remove.Node == "" {
			return fmt.Errorf("steps[%d]: remove.node is required", index)
		}
	case s.Undo != nil:
		if s.Undo.Step < 1 || s.Undo.Step > index {
			return fmt.Errorf("steps[%d]: undo.step must name an earlier step (1..%d)", index, index)
		}
	}
	return nil
}

func checkEndpoint(index int, field, s string) error {
	if s == "" {
		return fmt.Errorf("steps[%d]: %s is required", index, field)
	}
	if _, err := ir.ParseEndpoint(s); err != nil {
		return fmt.Errorf("steps[%d]: %s: %w", index, field, err)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLinkExists, AssertStructuralLink:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for %s", index, a.Type)
		}
	case AssertLinkAbsent:
		if a.To == "" {
			return fmt.Errorf("assertions[%d]: to is required for link_absent", index)
		}
	case AssertPortCount:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for port_count", index)
		}
		if a.In == nil && a.Out == nil {
			return fmt.Errorf("assertions[%d]: in or out is required for port_count", index)
		}
	case AssertFanIn:
	case AssertMutationCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for mutation_count", index)
		}
		switch ir.MutationOp(a.Op) {
		case "", ir.OpCreateLink, ir.OpRemoveLink, ir.OpDeleteNode:
		default:
			return fmt.Errorf("assertions[%d]: unknown op %q", index, a.Op)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
