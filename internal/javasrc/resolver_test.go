package javasrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameResolver_Resolve(t *testing.T) {
	t.Parallel()
	r := NewNameResolver([]string{
		"java.lang.Object", "java.lang.Runnable", "java.lang.String",
		"java.util.List", "java.util.Map", "java.util.Map$Entry",
		"java.io.Serializable", "java.io.Closeable",
		"p.Base", "p.Outer", "p.Outer$Inner", "p.Outer$Inner$Deep", "p.Outer$Sibling",
		"q.Base", "q.Runnable",
	})
	scope := Scope{
		Package: "p",
		Imports: []Import{
			{Path: "java.util.List"},
			{Path: "java.util.Map.Entry"},
			{Path: "java.io", Wildcard: true},
			{Path: "com.ext.Widget"},
		},
		Class: "p.Outer$Inner",
	}

	tests := []struct {
		name      string
		expr      string
		scope     Scope
		want      string
		wantKnown bool
	}{
		{"enclosing member type", "Sibling", scope, "p.Outer$Sibling", true},
		{"enclosing class itself", "Outer", scope, "p.Outer", true},
		{"single-type import", "List", scope, "java.util.List", true},
		{"single-type import of member type", "Entry", scope, "java.util.Map$Entry", true},
		{"same package", "Base", scope, "p.Base", true},
		{"wildcard import", "Closeable", scope, "java.io.Closeable", true},
		{"java.lang", "Runnable", scope, "java.lang.Runnable", true},
		{"fully qualified", "q.Base", scope, "q.Base", true},
		{"qualified member type", "java.util.Map.Entry", scope, "java.util.Map$Entry", true},
		{"member of resolved outer", "Outer.Inner.Deep", scope, "p.Outer$Inner$Deep", true},
		{"generic arguments", "List<String>", scope, "java.util.List", true},
		{"unknown import", "Widget", scope, "com.ext.Widget", false},
		{"unknown simple name", "Missing", scope, "p.Missing", false},
		{"unknown qualified name", "x.y.Z", scope, "x.y.Z", false},
		{"default package", "Missing", Scope{}, "Missing", false},
		{"same package beats java.lang", "Runnable", Scope{Package: "q"}, "q.Runnable", true},
		{"empty", "", scope, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := r.Resolve(tt.expr, tt.scope)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestEnclosing(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"p.A$B", "p.A"}, enclosing("p.A$B$C"))
	assert.Nil(t, enclosing("p.A"))
}
