package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

// Scenario is a scripted session run.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Entities is inline CUE declaring the entity types.
	Entities string `yaml:"entities,omitempty"`

	// EntitiesDir is a directory of CUE files declaring the entity types.
	// Relative paths resolve against the scenario file.
	EntitiesDir string `yaml:"entities_dir,omitempty"`

	// SessionID fixes the session id. Defaults to "scenario-<name>".
	SessionID string `yaml:"session_id,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on the session.
type Step struct {
	Op string `yaml:"op"`

	// Ref names the record the step works on. attach binds it.
	Ref string `yaml:"ref,omitempty"`

	// Entity is the entity type for attach.
	Entity string `yaml:"entity,omitempty"`

	// State is the initial state for attach: managed or transient.
	State string `yaml:"state,omitempty"`

	// Values are column values for attach and set.
	Values map[string]any `yaml:"values,omitempty"`

	// Fail makes a flush step's persister return this error message.
	Fail string `yaml:"fail,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	// Flush is the zero-based flush index (plan).
	Flush int `yaml:"flush,omitempty"`

	// Actions lists the expected "KIND key" strings (plan).
	Actions []string `yaml:"actions,omitempty"`

	// Ref names a record (state, lookup).
	Ref string `yaml:"ref,omitempty"`

	// State is the expected state name or UNTRACKED (state).
	State string `yaml:"state,omitempty"`

	// Entity and ID form the identity to look up (lookup).
	Entity string `yaml:"entity,omitempty"`
	ID     any    `yaml:"id,omitempty"`

	// Absent expects the lookup to miss (lookup).
	Absent bool `yaml:"absent,omitempty"`

	// Count is the expected number of tracked entities (size).
	Count *int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpAttach = "attach"
	OpInsert = "insert"
	OpDelete = "delete"
	OpRemove = "remove"
	OpDetach = "detach"
	OpSet    = "set"
	OpFlush  = "flush"
	OpClear  = "clear"
)

// Assertion types.
const (
	AssertPlan   = "plan"
	AssertState  = "state"
	AssertLookup = "lookup"
	AssertSize   = "size"
)

// StateUntracked is the state name assertions use for entities the session
// no longer tracks.
const StateUntracked = "UNTRACKED"

var initialStates = map[string]session.State{
	"managed":   session.StateManaged,
	"transient": session.StateTransient,
}

// LoadScenario reads and validates a scenario file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. baseDir resolves a relative
// entities_dir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s.EntitiesDir != "" && !filepath.IsAbs(s.EntitiesDir) && baseDir != "" {
		s.EntitiesDir = filepath.Join(baseDir, s.EntitiesDir)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Descriptors loads the scenario's entity descriptors.
func (s *Scenario) Descriptors() ([]schema.Descriptor, error) {
	if s.EntitiesDir != "" {
		return schema.LoadDescriptors(s.EntitiesDir)
	}
	return schema.ParseDescriptors(s.Entities)
}

// Schemas builds a record schema per entity type, keyed by type name.
func (s *Scenario) Schemas() (map[string]*schema.Schema, error) {
	descs, err := s.Descriptors()
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}
	out := make(map[string]*schema.Schema, len(descs))
	for _, d := range descs {
		sch, err := schema.ForRecord(d)
		if err != nil {
			return nil, fmt.Errorf("entities: %w", err)
		}
		out[d.Type] = sch
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Entities == "") == (s.EntitiesDir == "") {
		return fmt.Errorf("exactly one of entities and entities_dir is required")
	}
	if s.EntitiesDir != "" {
		if _, err := os.Stat(s.EntitiesDir); err != nil {
			return fmt.Errorf("entities_dir: %w", err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, bound); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, bound); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, bound map[string]bool) error {
	switch step.Op {
	case OpAttach:
		if step.Ref == "" || step.Entity == "" {
			return fmt.Errorf("steps[%d]: attach requires ref and entity", i)
		}
		if step.State != "" {
			if _, ok := initialStates[step.State]; !ok {
				return fmt.Errorf("steps[%d]: unknown state %q (want managed or transient)", i, step.State)
			}
		}
		bound[step.Ref] = true
	case OpInsert, OpDelete, OpRemove, OpDetach, OpSet:
		if step.Ref == "" {
			return fmt.Errorf("steps[%d]: %s requires ref", i, step.Op)
		}
		if !bound[step.Ref] {
			return fmt.Errorf("steps[%d]: ref %q is not attached by an earlier step", i, step.Ref)
		}
		if step.Op == OpSet && len(step.Values) == 0 {
			return fmt.Errorf("steps[%d]: set requires values", i)
		}
	case OpFlush, OpClear:
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	if step.Fail != "" && step.Op != OpFlush {
		return fmt.Errorf("steps[%d]: fail is only valid on flush", i)
	}
	return nil
}

func validateAssertion(i int, a Assertion, bound map[string]bool) error {
	checkRef := func() error {
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: %s requires ref", i, a.Type)
		}
		if !bound[a.Ref] {
			return fmt.Errorf("assertions[%d]: unknown ref %q", i, a.Ref)
		}
		return nil
	}

	switch a.Type {
	case AssertPlan:
		if a.Flush < 0 {
			return fmt.Errorf("assertions[%d]: flush must be >= 0", i)
		}
		if a.Actions == nil {
			return fmt.Errorf("assertions[%d]: plan requires actions (use [] for none)", i)
		}
	case AssertState:
		if err := checkRef(); err != nil {
			return err
		}
		if _, ok := session.ParseState(a.State); !ok && a.State != StateUntracked {
			return fmt.Errorf("assertions[%d]: unknown state %q", i, a.State)
		}
	case AssertLookup:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: lookup requires entity", i)
		}
		if a.Absent == (a.Ref != "") {
			return fmt.Errorf("assertions[%d]: lookup requires exactly one of ref and absent", i)
		}
		if a.Ref != "" {
			if err := checkRef(); err != nil {
				return err
			}
		}
	case AssertSize:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: size requires count", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
	}
	return nil
}
