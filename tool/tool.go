package tool

import (
	"encoding/json"
	"fmt"
)

type Choice string

const (
	ChoiceAuto     Choice = "auto"
	ChoiceNone     Choice = "none"
	ChoiceRequired Choice = "required"
)

type Tool struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

type Parameters struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Required   []string   `json:"required"`
}

type Properties map[string]Property

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Function declares a function tool taking an object of the given properties.
func Function(name, description string, props Properties, required ...string) Tool {
	if props == nil {
		props = Properties{}
	}
	if required == nil {
		required = []string{}
	}
	return Tool{
		Type:        "function",
		Name:        name,
		Description: description,
		Parameters: Parameters{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

// ChoiceFor picks auto when any tool is declared.
func ChoiceFor(tools []Tool) Choice {
	if len(tools) > 0 {
		return ChoiceAuto
	}
	return ChoiceNone
}

// Handler executes a function call. A nil result with a nil error reports
// success to the model.
type Handler func(name string, args map[string]any) (any, error)

// Output runs h and renders its outcome as the JSON string the model expects
// in a function_call_output item.
func Output(h Handler, name, arguments string) string {
	var args map[string]any
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return render(map[string]any{"error": fmt.Sprintf("invalid arguments: %s", err)})
		}
	}

	res, err := h(name, args)
	switch {
	case err != nil:
		return render(map[string]any{"error": err.Error()})
	case res != nil:
		return render(res)
	default:
		return render(map[string]any{"success": true})
	}
}

func render(v any) string {
	d, err := json.Marshal(v)
	if err != nil {
		d, _ = json.Marshal(map[string]any{"error": err.Error()})
	}
	return string(d)
}
