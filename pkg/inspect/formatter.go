package inspect

import (
	"fmt"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/schema"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes kind, access, and unit information
	ShowMetadata bool

	// ShowAttributes lists node attributes below their node
	ShowAttributes bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata:   true,
		ShowAttributes: true,
		IndentWidth:    2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatValue formats a value for display, followed by its unit.
func (f *Formatter) FormatValue(v hash.Value, unit string) string {
	s := formatValue(v)
	if unit != "" && v.Kind() != hash.KindNone {
		s += " " + unit
	}
	return s
}

func formatValue(v hash.Value) string {
	switch k := v.Kind(); {
	case k == hash.KindNone || !v.IsValid():
		return "null"
	case k == hash.KindString:
		return fmt.Sprintf("%q", v.String())
	case k == hash.KindBytes:
		b, _ := hash.Extract[[]byte](v)
		return fmt.Sprintf("0x%x", b)
	case k == hash.KindHash:
		h, _ := hash.Extract[*hash.Hash](v)
		return fmt.Sprintf("{%d keys}", h.Len())
	case k == hash.KindVectorHash:
		return fmt.Sprintf("[%d rows]", v.Len())
	case k.IsVector():
		elems := v.Elements()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.String()
	}
}

// FormatTree renders h as an indented listing, one node per line.
func (f *Formatter) FormatTree(h *hash.Hash) string {
	if h.Empty() {
		return "(empty)\n"
	}
	var sb strings.Builder
	f.formatLevel(&sb, h, 0)
	return sb.String()
}

func (f *Formatter) formatLevel(sb *strings.Builder, h *hash.Hash, depth int) {
	for key, n := range h.All() {
		f.formatNode(sb, key, n, depth)
	}
}

func (f *Formatter) formatNode(sb *strings.Builder, key string, n *hash.Node, depth int) {
	v := n.Value()
	switch v.Kind() {
	case hash.KindHash:
		sb.WriteString(f.Indent(depth, key) + "\n")
		f.formatAttributes(sb, n.Attributes(), depth+1)
		sub, _ := n.Hash()
		f.formatLevel(sb, sub, depth+1)
	case hash.KindVectorHash:
		sb.WriteString(f.Indent(depth, fmt.Sprintf("%s (%d rows)", key, v.Len())) + "\n")
		f.formatAttributes(sb, n.Attributes(), depth+1)
		rows, _ := hash.Extract[[]*hash.Hash](v)
		for i, row := range rows {
			sb.WriteString(f.Indent(depth+1, fmt.Sprintf("[%d]", i)) + "\n")
			f.formatLevel(sb, row, depth+2)
		}
	default:
		line := fmt.Sprintf("%s = %s", key, f.FormatValue(v, unitOf(n)))
		if f.ShowMetadata {
			line += fmt.Sprintf(" (%s)", v.Kind())
		}
		sb.WriteString(f.Indent(depth, line) + "\n")
		f.formatAttributes(sb, n.Attributes(), depth+1)
	}
}

func (f *Formatter) formatAttributes(sb *strings.Builder, attrs *hash.Attributes, depth int) {
	if !f.ShowAttributes {
		return
	}
	for name, v := range attrs.All() {
		sb.WriteString(f.Indent(depth, fmt.Sprintf("@%s = %s", name, formatValue(v))) + "\n")
	}
}

// unitOf reads a "unit" string attribute, as set by schema-aware tools.
func unitOf(n *hash.Node) string {
	v, ok := n.Attributes().Get("unit")
	if !ok || v.Kind() != hash.KindString {
		return ""
	}
	return v.String()
}

// EntryRow represents a formatted tree entry for display.
type EntryRow struct {
	Name   string
	Value  string
	Kind   string
	Access string
	Unit   string
}

// FormatEntryTable formats a list of entries as a table.
func (f *Formatter) FormatEntryTable(rows []EntryRow) string {
	if len(rows) == 0 {
		return "  (no entries)\n"
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row.Name))
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %-*s  %s", width, row.Name, row.Value))
		if f.ShowMetadata && row.Kind != "" {
			meta := row.Kind
			if row.Access != "" {
				meta += ", " + row.Access
			}
			sb.WriteString(fmt.Sprintf(" (%s)", meta))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatElement renders the help text of one schema element.
func (f *Formatter) FormatElement(e *schema.Element) string {
	var sb strings.Builder
	header := fmt.Sprintf("%s (%s, %s)", e.Path, e.ValueKind, e.NodeType)
	if e.DisplayedName != "" {
		header = fmt.Sprintf("%s %q", header, e.DisplayedName)
	}
	sb.WriteString(header + "\n")

	field := func(name, value string) {
		if value != "" {
			sb.WriteString(f.Indent(1, fmt.Sprintf("%-16s%s", name+":", value)) + "\n")
		}
	}
	field("Description", e.Description)
	field("Access", e.Access.String())
	field("Assignment", e.Assignment.String())
	if e.HasDefault() {
		field("Default", f.FormatValue(e.Default, e.Unit))
	}
	field("Unit", e.Unit)
	if len(e.Options) > 0 {
		parts := make([]string, len(e.Options))
		for i, o := range e.Options {
			parts[i] = formatValue(o)
		}
		field("Options", strings.Join(parts, ", "))
	}
	field("Range", formatRange(e))
	field("Size", formatSize(e))
	field("Allowed states", strings.Join(e.AllowedStates, ", "))
	field("Alias", e.Alias)
	field("Tags", strings.Join(e.Tags, ", "))
	if e.Restrictions != 0 {
		field("Restrictions", strings.Join(e.Restrictions.Names(), ", "))
	}
	if e.SkipValidation {
		field("Validation", "skipped")
	}
	return sb.String()
}

func formatRange(e *schema.Element) string {
	lo, hi := "", ""
	switch {
	case e.MinInc.IsValid():
		lo = "[" + formatValue(e.MinInc)
	case e.MinExc.IsValid():
		lo = "(" + formatValue(e.MinExc)
	}
	switch {
	case e.MaxInc.IsValid():
		hi = formatValue(e.MaxInc) + "]"
	case e.MaxExc.IsValid():
		hi = formatValue(e.MaxExc) + ")"
	}
	if lo == "" && hi == "" {
		return ""
	}
	if lo == "" {
		lo = "(-inf"
	}
	if hi == "" {
		hi = "inf)"
	}
	return lo + ", " + hi
}

func formatSize(e *schema.Element) string {
	if e.MinSize == schema.Unset && e.MaxSize == schema.Unset {
		return ""
	}
	bound := func(n int) string {
		if n == schema.Unset {
			return "*"
		}
		return fmt.Sprint(n)
	}
	return bound(e.MinSize) + ".." + bound(e.MaxSize)
}

// FormatSchema renders help for the element at path, followed by a summary
// of its children. An empty path summarizes the top level.
func (f *Formatter) FormatSchema(s *schema.Schema, path string) (string, error) {
	var sb strings.Builder
	if path == "" {
		sb.WriteString(fmt.Sprintf("Schema: %s\n", s.RootName()))
	} else {
		e, err := s.Element(path)
		if err != nil {
			return "", err
		}
		sb.WriteString(f.FormatElement(&e))
		if e.IsTable() {
			sb.WriteString(f.Indent(1, "Row schema:") + "\n")
			f.summarize(&sb, e.RowSchema, "", 2)
			return sb.String(), nil
		}
	}
	f.summarize(&sb, s, path, 1)
	return sb.String(), nil
}

func (f *Formatter) summarize(sb *strings.Builder, s *schema.Schema, path string, depth int) {
	children, err := s.Children(path)
	if err != nil || len(children) == 0 {
		return
	}
	width := 0
	for _, c := range children {
		width = max(width, len(c.Key))
	}
	for _, c := range children {
		kind := c.ValueKind.String()
		if !c.IsLeaf() {
			kind = c.NodeType.String()
		}
		line := fmt.Sprintf("%-*s  %-14s", width, c.Key, kind)
		if c.Assignment == schema.Mandatory {
			line += " *"
		}
		if c.Description != "" {
			line += "  " + c.Description
		}
		sb.WriteString(f.Indent(depth, strings.TrimRight(line, " ")) + "\n")
	}
}
