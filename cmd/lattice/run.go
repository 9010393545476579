package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagVars []string

var runCmd = &cobra.Command{
	Use:   "run <script.risor>",
	Short: "Run a Risor script against the class hierarchy",
	Long: `Runs a Risor script with hierarchy queries bound as globals:
is_subtype, is_assignable, superclass_of, superclasses_of, subclasses_of,
implementers_of, interfaces_of, add_type, type_count, and log.
Scripts may import sibling .risor files by name.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().StringArrayVar(&flagVars, "var", nil, "script global as name=value (repeatable)")
}

func runScript(cmd *cobra.Command, args []string) error {
	globals, err := parseVars(flagVars)
	if err != nil {
		return err
	}
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	return e.RunScript(context.Background(), args[0], globals)
}

// parseVars turns name=value pairs into string globals.
func parseVars(vars []string) (map[string]any, error) {
	globals := make(map[string]any, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", v)
		}
		globals[name] = value
	}
	return globals, nil
}
