package inspect

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Path
		wantErr error
	}{
		{
			name:  "dotted path",
			input: "link.tcp.port",
			want:  &Path{Tree: "link.tcp.port"},
		},
		{
			name:  "slashes as separators",
			input: "link/tcp/port",
			want:  &Path{Tree: "link.tcp.port"},
		},
		{
			name:  "indexed row",
			input: "points[1].label",
			want:  &Path{Tree: "points[1].label"},
		},
		{
			name:  "attribute",
			input: " speed@unit ",
			want:  &Path{Tree: "speed", Attribute: "unit"},
		},
		{
			name:  "root",
			input: ".",
			want:  &Path{},
		},
		{name: "empty", input: "  ", wantErr: ErrEmptyPath},
		{name: "leading dot", input: ".a", wantErr: ErrInvalidPath},
		{name: "double separator", input: "a//b", wantErr: ErrInvalidPath},
		{name: "trailing dot", input: "a.", wantErr: ErrInvalidPath},
		{name: "attribute only", input: "@unit", wantErr: ErrInvalidPath},
		{name: "empty attribute", input: "a@", wantErr: ErrInvalidPath},
		{name: "stray bracket", input: "a.b]c", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePath(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) unexpected error: %v", tt.input, err)
			}
			if got.Tree != tt.want.Tree || got.Attribute != tt.want.Attribute {
				t.Errorf("ParsePath(%q) = {%q %q}, want {%q %q}",
					tt.input, got.Tree, got.Attribute, tt.want.Tree, tt.want.Attribute)
			}
		})
	}
}

func TestPathString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a/b", "a.b"},
		{"a.b@unit", "a.b@unit"},
		{"/", "."},
	}
	for _, tt := range tests {
		p, err := ParsePath(tt.input)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", tt.input, err)
		}
		if got := p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSchemaPath(t *testing.T) {
	p, _ := ParsePath("bus.address@unit")
	if got, ok := p.SchemaPath(); !ok || got != "bus.address" {
		t.Errorf("SchemaPath() = %q, %v", got, ok)
	}
	p, _ = ParsePath("points[0].label")
	if _, ok := p.SchemaPath(); ok {
		t.Error("row paths have no schema path")
	}
}
