package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// DeclarationHash computes a deterministic hash over the hierarchy facts of
// one file's classes: names, kinds, modifiers and supertype clauses.
// Location changes do NOT affect the hash, so reformatting a file or
// editing method bodies leaves it unchanged.
func DeclarationHash(classes []Class, supertypes []Supertype) string {
	names := make(map[int64]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}

	lines := make([]string, 0, len(classes)+len(supertypes))
	for _, c := range classes {
		mods := append([]string(nil), c.Modifiers...)
		sort.Strings(mods)
		lines = append(lines, fmt.Sprintf("class:%s:%s:%v:%s", c.Name, c.Kind, c.IsInterface, strings.Join(mods, ",")))
	}
	for _, st := range supertypes {
		lines = append(lines, fmt.Sprintf("super:%s:%s:%d:%s", names[st.ClassID], st.Relation, st.Ordinal, st.TypeExpr))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		fmt.Fprintln(h, l)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
