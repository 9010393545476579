package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jward/lattice"
	"github.com/spf13/cobra"
)

var (
	flagLimit   int
	flagOffset  int
	flagKind    string
	flagPackage string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the class hierarchy",
	Long:  "Run hierarchy queries against an indexed codebase. Types are written as binary names (com.acme.Outer$Inner), primitives, null, or any of these followed by [] pairs.",
}

var isSubtypeCmd = &cobra.Command{
	Use:   "is-subtype <super> <sub>",
	Short: "Report whether sub is a proper subtype of super",
	Args:  cobra.ExactArgs(2),
	RunE:  runIsSubtype,
}

var assignableCmd = &cobra.Command{
	Use:   "assignable <to> <from>",
	Short: "Report whether a value of type from can be stored where to is expected",
	Args:  cobra.ExactArgs(2),
	RunE:  runAssignable,
}

var superclassCmd = &cobra.Command{
	Use:   "superclass <class>",
	Short: "Show the direct superclass of a class",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuperclass,
}

var superclassesCmd = &cobra.Command{
	Use:   "superclasses <class>",
	Short: "Show the superclass chain of a class up to the root",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypeList("superclasses", false, (*lattice.TypeHierarchy).SuperClassesOf),
}

var subclassesCmd = &cobra.Command{
	Use:   "subclasses <class>",
	Short: "List every indexed class extending a class",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypeList("subclasses", true, (*lattice.TypeHierarchy).SubclassesOf),
}

var implementersCmd = &cobra.Command{
	Use:   "implementers <interface>",
	Short: "List every indexed class or interface below an interface",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypeList("implementers", true, (*lattice.TypeHierarchy).ImplementersOf),
}

var interfacesCmd = &cobra.Command{
	Use:   "interfaces <class>",
	Short: "List every interface a class implements or extends",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypeList("interfaces", false, (*lattice.TypeHierarchy).ImplementedInterfacesOf),
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List indexed classes",
	Args:  cobra.NoArgs,
	RunE:  runClasses,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the index",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit for list results (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	classesCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind: class|interface|enum|record|annotation")
	classesCmd.Flags().StringVar(&flagPackage, "package", "", "filter by package")

	queryCmd.AddCommand(isSubtypeCmd)
	queryCmd.AddCommand(assignableCmd)
	queryCmd.AddCommand(superclassCmd)
	queryCmd.AddCommand(superclassesCmd)
	queryCmd.AddCommand(subclassesCmd)
	queryCmd.AddCommand(implementersCmd)
	queryCmd.AddCommand(interfacesCmd)
	queryCmd.AddCommand(classesCmd)
	queryCmd.AddCommand(statsCmd)
}

// --- Helpers ---

// openEngine opens the Engine over the database from the --db flag or config.
func openEngine() (*lattice.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'lattice index' first)", dbPath)
	}
	return lattice.New(dbPath, engineOptions()...)
}

// parseTypes parses positional type arguments.
func parseTypes(args []string) ([]lattice.Type, error) {
	out := make([]lattice.Type, len(args))
	for i, a := range args {
		t, err := lattice.ParseType(a)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func typeNames(ts []lattice.ClassType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}

// paginate applies --limit and --offset to items.
func paginate[T any](items []T) []T {
	limit := min(max(flagLimit, 1), 500)
	if flagOffset >= len(items) {
		return []T{}
	}
	items = items[max(flagOffset, 0):]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// --- Relation queries ---

func runIsSubtype(cmd *cobra.Command, args []string) error {
	return runRelation("is-subtype", args, (*lattice.TypeHierarchy).IsSubtype)
}

func runAssignable(cmd *cobra.Command, args []string) error {
	return runRelation("assignable", args, (*lattice.TypeHierarchy).IsAssignable)
}

type relationFn func(*lattice.TypeHierarchy, context.Context, lattice.Type, lattice.Type) (bool, error)

func runRelation(command string, args []string, fn relationFn) error {
	ts, err := parseTypes(args)
	if err != nil {
		return outputError(command, err)
	}
	e, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer e.Close()

	ok, err := fn(e.Hierarchy(), context.Background(), ts[0], ts[1])
	if err != nil {
		return outputError(command, err)
	}
	one := 1
	return outputResult(CLIResult{
		Command:    command,
		Results:    CLIAnswer{Super: args[0], Sub: args[1], Result: ok},
		TotalCount: &one,
	})
}

// --- Class queries ---

func runSuperclass(cmd *cobra.Command, args []string) error {
	ts, err := parseTypes(args)
	if err != nil {
		return outputError("superclass", err)
	}
	e, err := openEngine()
	if err != nil {
		return outputError("superclass", err)
	}
	defer e.Close()

	super, ok, err := e.Hierarchy().SuperClassOf(context.Background(), ts[0])
	if err != nil {
		return outputError("superclass", err)
	}
	names := []string{}
	if ok {
		names = append(names, super.Name())
	}
	n := len(names)
	return outputResult(CLIResult{Command: "superclass", Results: names, TotalCount: &n})
}

type typeListFn func(*lattice.TypeHierarchy, context.Context, lattice.Type) ([]lattice.ClassType, error)

// runTypeList builds the RunE of a query returning a list of classes. When
// loaded is set, the whole index is registered first so downward queries
// see every class.
func runTypeList(command string, loaded bool, fn typeListFn) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ts, err := parseTypes(args)
		if err != nil {
			return outputError(command, err)
		}
		e, err := openEngine()
		if err != nil {
			return outputError(command, err)
		}
		defer e.Close()

		ctx := context.Background()
		h := e.Hierarchy()
		if loaded {
			if h, err = e.LoadHierarchy(ctx); err != nil {
				return outputError(command, err)
			}
		}
		types, err := fn(h, ctx, ts[0])
		if err != nil {
			return outputError(command, err)
		}
		total := len(types)
		return outputResult(CLIResult{
			Command:    command,
			Results:    paginate(typeNames(types)),
			TotalCount: &total,
		})
	}
}

func runClasses(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("classes", err)
	}
	defer e.Close()

	s := e.Store()
	files, err := s.Files()
	if err != nil {
		return outputError("classes", err)
	}
	var classes []CLIClass
	for _, f := range files {
		if flagPackage != "" && f.Package != flagPackage {
			continue
		}
		cs, err := s.ClassesByFile(f.ID)
		if err != nil {
			return outputError("classes", err)
		}
		for _, c := range cs {
			if flagKind != "" && !strings.EqualFold(c.Kind, flagKind) {
				continue
			}
			classes = append(classes, CLIClass{
				Name:      c.Name,
				Kind:      c.Kind,
				Interface: c.IsInterface,
				Modifiers: c.Modifiers,
				File:      f.Path,
				Line:      c.StartLine,
			})
		}
	}
	total := len(classes)
	return outputResult(CLIResult{
		Command:    "classes",
		Results:    paginate(classes),
		TotalCount: &total,
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("stats", err)
	}
	defer e.Close()

	st, err := e.Stats()
	if err != nil {
		return outputError("stats", err)
	}
	return outputResult(CLIResult{
		Command: "stats",
		Results: CLIStats{
			Files:      st.Files,
			Classes:    st.Classes,
			Interfaces: st.Interfaces,
			Supertypes: st.Supertypes,
			Unresolved: st.Unresolved,
		},
	})
}
