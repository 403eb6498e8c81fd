package command

import "fmt"

// Registry returns the commands the REPL accepts, keyed "<service> <action>".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service: "submit",
			Action:  "create",
			Method:  "POST",
			Path:    "/problem/submit",
			Fields: []Field{
				{Name: "language", Required: true, Prompt: "Language (c|cpp)"},
				{Name: "problem_id", Required: true, Prompt: "Problem id"},
				{Name: "source_file", Required: true, Prompt: "Path to source file"},
			},
			BuildBody: func(params Params) (interface{}, error) {
				code := params.Get("code")
				if code == "" {
					loaded, err := ReadFileParam(params, "source_file")
					if err != nil {
						return nil, err
					}
					code = loaded
				}
				body := map[string]string{
					"language":   params.Get("language"),
					"code":       code,
					"problem_id": params.Get("problem_id"),
				}
				if opt := params.Get("opt"); opt != "" {
					body["opt"] = opt
				}
				if std := params.Get("std"); std != "" {
					body["std"] = std
				}
				return body, nil
			},
		},
		{
			Service: "submit",
			Action:  "status",
			Method:  "GET",
			Path:    "/problem/submission/{id}",
			Fields: []Field{
				{Name: "id", Required: true, Prompt: "Submission id"},
			},
		},
		{
			Service: "problem",
			Action:  "get",
			Method:  "GET",
			Path:    "/problem/{problem_id}",
			Fields: []Field{
				{Name: "problem_id", Required: true, Prompt: "Problem id"},
			},
		},
		{
			Service: "problem",
			Action:  "add",
			Method:  "POST",
			Path:    "/problem-add",
			Fields: []Field{
				{Name: "title", Required: true, Prompt: "Title"},
				{Name: "difficulty", Required: true, Prompt: "Difficulty (fast|easy|medium|hard)"},
				{Name: "spec_file", Required: true, Prompt: "Path to problem JSON file"},
			},
			BuildBody: func(params Params) (interface{}, error) {
				// The statement, samples, and tests come from a JSON file;
				// title and difficulty given inline win over the file.
				raw, err := ReadFileParam(params, "spec_file")
				if err != nil {
					return nil, err
				}
				return mergeProblemSpec(raw, params)
			},
		},
		{
			Service: "rank",
			Action:  "compare",
			Method:  "POST",
			Path:    "/problem/compare",
			Fields: []Field{
				{Name: "a", Required: true, Prompt: "First submission id"},
				{Name: "b", Required: true, Prompt: "Second submission id"},
			},
			BuildBody: func(params Params) (interface{}, error) {
				return map[string]string{
					"submission_id_a": params.Get("a"),
					"submission_id_b": params.Get("b"),
				}, nil
			},
		},
	}

	registry := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		registry[fmt.Sprintf("%s %s", cmd.Service, cmd.Action)] = cmd
	}
	return registry
}
