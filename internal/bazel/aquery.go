package bazel

import (
	"encoding/json"
	"fmt"
)

// Structs mirroring the subset of Bazel's analysis_v2 proto we consume, as
// emitted by `aquery --output=jsonproto`.
// Proto reference: https://github.com/bazelbuild/bazel/blob/master/src/main/protobuf/analysis_v2.proto

type aqueryResult struct {
	Actions []aqueryAction `json:"actions"`
	Targets []aqueryTarget `json:"targets"`
}

type aqueryAction struct {
	TargetID             int           `json:"targetId"`
	Mnemonic             string        `json:"mnemonic"`
	Arguments            []string      `json:"arguments"`
	EnvironmentVariables []aqueryEnvKV `json:"environmentVariables"`
}

type aqueryEnvKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type aqueryTarget struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// parseActions decodes aquery jsonproto output and converts the retained
// compile-family actions. Actions with structurally unavailable commands
// (e.g. placeholder actions over not-yet-enumerated source sets carry no
// arguments) are skipped and counted, not fatal.
func parseActions(data []byte, group string) (actions []Action, skipped int, err error) {
	var result aqueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, 0, fmt.Errorf("failed to parse aquery jsonproto output: %w", err)
	}

	labels := make(map[int]string, len(result.Targets))
	for _, t := range result.Targets {
		labels[t.ID] = t.Label
	}

	for _, a := range result.Actions {
		if !IsCompile(a.Mnemonic) {
			continue
		}
		if len(a.Arguments) == 0 {
			skipped++
			continue
		}

		label := labels[a.TargetID]
		var env map[string]string
		if len(a.EnvironmentVariables) > 0 {
			env = make(map[string]string, len(a.EnvironmentVariables))
			for _, kv := range a.EnvironmentVariables {
				env[kv.Key] = kv.Value
			}
		}
		actions = append(actions, Action{
			Mnemonic:    a.Mnemonic,
			Arguments:   a.Arguments,
			TargetLabel: label,
			Environment: env,
			External:    isExternalLabel(label),
			Group:       group,
		})
	}

	return actions, skipped, nil
}
