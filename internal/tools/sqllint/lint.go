package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	statementPattern = regexp.MustCompile(`(?i)^(select|insert|update|delete|with)\b`)
	markerPattern    = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

// Violation is one unmarked or duplicated SQL constant.
type Violation struct {
	File    string
	Line    int
	Name    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.File, v.Line, v.Message, v.Name)
}

// Lint walks targets (files or directories) and reports SQL constants whose
// first line is not a valid marker, plus markers used more than once.
func Lint(targets ...string) ([]Violation, error) {
	var (
		out  []Violation
		seen = map[string]Violation{}
	)
	visit := func(path string) error {
		vs, err := lintFile(path, seen)
		out = append(out, vs...)
		return err
	}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(target) == ".go" {
				if err := visit(target); err != nil {
					return nil, err
				}
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			return visit(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func lintFile(path string, seen map[string]Violation) ([]Violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}
	var out []Violation
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := strconv.Unquote(lit.Value)
			if err != nil {
				continue
			}
			first, rest := splitFirstLine(raw)
			isMarked := strings.HasPrefix(first, "--sql")
			if !isMarked && !statementPattern.MatchString(first) {
				continue
			}
			name := "_"
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			v := Violation{File: path, Line: fset.Position(lit.Pos()).Line, Name: name}
			m := markerPattern.FindStringSubmatch(first)
			switch {
			case m == nil:
				v.Message = "missing or invalid --sql <uuid> marker"
				out = append(out, v)
			case strings.TrimSpace(rest) == "":
				v.Message = "marker without a statement"
				out = append(out, v)
			default:
				if prev, dup := seen[m[1]]; dup {
					v.Message = "marker already used by " + prev.Name
					out = append(out, v)
					continue
				}
				seen[m[1]] = v
			}
		}
		return true
	})
	return out, nil
}

func splitFirstLine(s string) (string, string) {
	s = strings.TrimLeft(s, "\n\r \t")
	first, rest, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(first), rest
}
