// Package ldf parses the lattice-definition text format: a line-oriented
// markup listing the sites, bonds and exchange interactions of a spin
// model. The format exists for model specification and visualization;
// observable extraction never depends on it.
//
// Each non-empty line holds one self-closing element:
//
//	<site id="0" x="0" y="0" z="0" parametrized="true"/>
//	<bond from="0" to="1"/>
//	<interaction from="0" to="1" value="[[1,0,0],[0,1,0],[0,0,1]]"/>
//
// Coupling matrices are parsed into fixed 3x3 numeric arrays; no dynamic
// expression evaluation takes place.
package ldf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
)

// Site is one declared lattice site.
type Site struct {
	ID           int
	Position     lattice.Vec3
	Parametrized bool
}

// Bond joins two declared sites.
type Bond struct {
	From, To int
}

// Interaction is an exchange coupling between two declared sites.
type Interaction struct {
	From, To int
	Coupling container.Tensor
}

// Definition is a parsed lattice-definition file.
type Definition struct {
	Sites        []Site
	Bonds        []Bond
	Interactions []Interaction
}

// Site returns the declared site with the given identifier.
func (d *Definition) Site(id int) (Site, bool) {
	for _, s := range d.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

// ParseError reports a malformed definition line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ldf: line %d: %s", e.Line, e.Reason)
}

// ParseFile parses the definition file at path.
func ParseFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a definition from r. Bonds and interactions must refer to
// declared site identifiers.
func Parse(r io.Reader) (*Definition, error) {
	def := &Definition{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tag, attrs, err := parseElement(line, lineNo)
		if err != nil {
			return nil, err
		}

		switch tag {
		case "site":
			s, err := parseSite(attrs, lineNo)
			if err != nil {
				return nil, err
			}
			if _, exists := def.Site(s.ID); exists {
				return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("duplicate site id %d", s.ID)}
			}
			def.Sites = append(def.Sites, s)
		case "bond":
			from, to, err := parseEndpoints(def, attrs, lineNo)
			if err != nil {
				return nil, err
			}
			def.Bonds = append(def.Bonds, Bond{From: from, To: to})
		case "interaction":
			from, to, err := parseEndpoints(def, attrs, lineNo)
			if err != nil {
				return nil, err
			}
			coupling, err := parseMatrix(attrs, lineNo)
			if err != nil {
				return nil, err
			}
			def.Interactions = append(def.Interactions, Interaction{From: from, To: to, Coupling: coupling})
		default:
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("unknown element %q", tag)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return def, nil
}

// parseElement splits a self-closing element into its tag name and
// attribute map.
func parseElement(line string, lineNo int) (string, map[string]string, error) {
	if !strings.HasPrefix(line, "<") || !strings.HasSuffix(line, "/>") {
		return "", nil, &ParseError{Line: lineNo, Reason: "not a self-closing element"}
	}
	body := strings.TrimSpace(line[1 : len(line)-2])

	fields, err := splitQuoted(body)
	if err != nil {
		return "", nil, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	if len(fields) == 0 {
		return "", nil, &ParseError{Line: lineNo, Reason: "empty element"}
	}

	attrs := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return "", nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("malformed attribute %q", f)}
		}
		attrs[key] = strings.Trim(value, `"`)
	}
	return fields[0], attrs, nil
}

// splitQuoted splits on whitespace, keeping quoted spans intact.
func splitQuoted(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	quoted := false

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t'):
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

func attrInt(attrs map[string]string, key string, lineNo int) (int, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, &ParseError{Line: lineNo, Reason: fmt.Sprintf("missing attribute %q", key)}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ParseError{Line: lineNo, Reason: fmt.Sprintf("attribute %q: %v", key, err)}
	}
	return n, nil
}

func attrFloat(attrs map[string]string, key string, lineNo int) (float64, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, &ParseError{Line: lineNo, Reason: fmt.Sprintf("missing attribute %q", key)}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ParseError{Line: lineNo, Reason: fmt.Sprintf("attribute %q: %v", key, err)}
	}
	return f, nil
}

func parseSite(attrs map[string]string, lineNo int) (Site, error) {
	id, err := attrInt(attrs, "id", lineNo)
	if err != nil {
		return Site{}, err
	}

	var pos lattice.Vec3
	for i, key := range []string{"x", "y", "z"} {
		pos[i], err = attrFloat(attrs, key, lineNo)
		if err != nil {
			return Site{}, err
		}
	}

	parametrized := false
	if v, ok := attrs["parametrized"]; ok {
		parametrized, err = strconv.ParseBool(v)
		if err != nil {
			return Site{}, &ParseError{Line: lineNo, Reason: fmt.Sprintf("attribute %q: %v", "parametrized", err)}
		}
	}
	return Site{ID: id, Position: pos, Parametrized: parametrized}, nil
}

func parseEndpoints(def *Definition, attrs map[string]string, lineNo int) (int, int, error) {
	from, err := attrInt(attrs, "from", lineNo)
	if err != nil {
		return 0, 0, err
	}
	to, err := attrInt(attrs, "to", lineNo)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range []int{from, to} {
		if _, ok := def.Site(id); !ok {
			return 0, 0, &ParseError{Line: lineNo, Reason: fmt.Sprintf("undeclared site id %d", id)}
		}
	}
	return from, to, nil
}

// parseMatrix reads a value attribute of the form
// [[a,b,c],[d,e,f],[g,h,i]] into a 3x3 tensor.
func parseMatrix(attrs map[string]string, lineNo int) (container.Tensor, error) {
	var t container.Tensor

	v, ok := attrs["value"]
	if !ok {
		return t, &ParseError{Line: lineNo, Reason: `missing attribute "value"`}
	}

	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, v)
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return t, &ParseError{Line: lineNo, Reason: "coupling matrix must be [[...],[...],[...]]"}
	}

	rows := strings.Split(s[2:len(s)-2], "],[")
	if len(rows) != 3 {
		return t, &ParseError{Line: lineNo, Reason: fmt.Sprintf("coupling matrix has %d rows, want 3", len(rows))}
	}
	for i, row := range rows {
		cols := strings.Split(row, ",")
		if len(cols) != 3 {
			return t, &ParseError{Line: lineNo, Reason: fmt.Sprintf("coupling matrix row %d has %d columns, want 3", i, len(cols))}
		}
		for j, col := range cols {
			f, err := strconv.ParseFloat(col, 64)
			if err != nil {
				return t, &ParseError{Line: lineNo, Reason: fmt.Sprintf("coupling matrix entry [%d][%d]: %v", i, j, err)}
			}
			t[i][j] = f
		}
	}
	return t, nil
}
