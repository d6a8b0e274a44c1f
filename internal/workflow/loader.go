package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Wire format for workflow definition documents. The states map is decoded
// through yaml.Node so phase declaration order survives parsing.
type fileDefinition struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	InitialState string    `yaml:"initial_state"`
	States       yaml.Node `yaml:"states"`
}

type fileState struct {
	Description         string           `yaml:"description"`
	DefaultInstructions string           `yaml:"default_instructions"`
	Transitions         []fileTransition `yaml:"transitions"`
}

type fileTransition struct {
	Trigger                string   `yaml:"trigger"`
	To                     string   `yaml:"to"`
	Instructions           string   `yaml:"instructions"`
	AdditionalInstructions string   `yaml:"additional_instructions"`
	TransitionReason       string   `yaml:"transition_reason"`
	Role                   string   `yaml:"role"`
	ReviewPerspectives     []string `yaml:"review_perspectives"`
}

// Parse decodes a workflow definition document and validates it.
// A non-nil error means the definition is unusable; there is no partial
// result.
func Parse(data []byte) (*Definition, error) {
	var fd fileDefinition
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parsing workflow definition: %w", err)
	}

	def := &Definition{
		Name:         fd.Name,
		Description:  fd.Description,
		InitialPhase: PhaseID(fd.InitialState),
		Phases:       make(map[PhaseID]*Phase),
	}

	// A mapping node stores keys and values as alternating content entries.
	if fd.States.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(fd.States.Content); i += 2 {
			keyNode := fd.States.Content[i]
			valNode := fd.States.Content[i+1]

			var fs fileState
			if err := valNode.Decode(&fs); err != nil {
				return nil, fmt.Errorf("parsing phase %q: %w", keyNode.Value, err)
			}

			id := PhaseID(keyNode.Value)
			phase := &Phase{
				ID:                  id,
				Description:         fs.Description,
				DefaultInstructions: fs.DefaultInstructions,
			}
			for _, ft := range fs.Transitions {
				phase.Transitions = append(phase.Transitions, Transition{
					Trigger:                ft.Trigger,
					To:                     PhaseID(ft.To),
					Instructions:           ft.Instructions,
					AdditionalInstructions: ft.AdditionalInstructions,
					TransitionReason:       ft.TransitionReason,
					Role:                   ft.Role,
					ReviewPerspectives:     ft.ReviewPerspectives,
				})
			}

			def.Phases[id] = phase
			def.order = append(def.order, id)
		}
	}

	if issues := Validate(def); len(issues) > 0 {
		return nil, &DefinitionError{Workflow: def.Name, Issues: issues}
	}

	return def, nil
}
