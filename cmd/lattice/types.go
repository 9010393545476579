package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIAnswer is the result of a yes/no relation query.
type CLIAnswer struct {
	Super  string `json:"super"`
	Sub    string `json:"sub"`
	Result bool   `json:"result"`
}

// CLIClass is a JSON-friendly indexed class.
type CLIClass struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Interface bool     `json:"interface"`
	Modifiers []string `json:"modifiers,omitempty"`
	File      string   `json:"file,omitempty"`
	Line      int      `json:"line"`
}

// CLIStats summarizes the index.
type CLIStats struct {
	Files      int `json:"files"`
	Classes    int `json:"classes"`
	Interfaces int `json:"interfaces"`
	Supertypes int `json:"supertypes"`
	Unresolved int `json:"unresolved"`
}
