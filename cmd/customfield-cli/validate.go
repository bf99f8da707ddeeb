package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-customfields/internal/source"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"github.com/goliatone/go-customfields/pkg/visibility"
)

type violation struct {
	file     string
	location string
	message  string
}

func runValidate(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "validate")
	hintsPath := fs.String("hints", "", "UI hint file checked against every definition")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return errFailed
	}

	reader := source.New()
	var violations []violation
	for _, path := range paths {
		found, err := lintDefinition(ctx, reader, path, *hintsPath)
		if err != nil {
			return err
		}
		violations = append(violations, found...)
	}
	if len(violations) == 0 {
		fmt.Fprintf(e.stdout, "%d definition(s) ok\n", len(paths))
		return nil
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(e.stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	return errFailed
}

func lintDefinition(ctx context.Context, reader *source.Reader, path, hintsPath string) ([]violation, error) {
	raw, err := reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	def, err := fieldspec.Parse(raw)
	if err != nil {
		var defErr *fieldspec.DefinitionError
		if !errors.As(err, &defErr) {
			return []violation{{file: path, location: formatLocation(""), message: err.Error()}}, nil
		}
		out := make([]violation, 0, len(defErr.Issues))
		for _, issue := range defErr.Issues {
			out = append(out, violation{file: path, location: formatLocation(issue.Path), message: issue.Message})
		}
		return out, nil
	}
	if hintsPath == "" {
		return nil, nil
	}

	data, err := reader.Read(ctx, hintsPath)
	if err != nil {
		return nil, err
	}
	hints, err := uischema.Parse(data)
	if err != nil {
		return []violation{{file: hintsPath, location: formatLocation(""), message: err.Error()}}, nil
	}
	var out []violation
	for _, hintPath := range hints.Paths() {
		if _, ok := fieldspec.Lookup(def, hintPath); !ok {
			out = append(out, violation{
				file:     hintsPath,
				location: formatLocation(hintPath),
				message:  fmt.Sprintf("hint targets a field %s does not define", path),
			})
			continue
		}
		hint, _ := hints.For(hintPath)
		if hint.VisibleIf == "" {
			continue
		}
		for _, msg := range lintRule(def, hintPath, hint.VisibleIf) {
			out = append(out, violation{file: hintsPath, location: formatLocation(hintPath), message: msg})
		}
	}
	return out, nil
}

// lintRule reports visibleIf rules that cannot compile, read unknown fields
// or hide a field the validator still requires.
func lintRule(def *fieldspec.ObjectSpec, hintPath, rule string) []string {
	compiled, err := visibility.Compile(rule)
	if err != nil {
		return []string{err.Error()}
	}
	var out []string
	for _, field := range compiled.Fields() {
		if _, ok := fieldspec.Lookup(def, field); !ok {
			out = append(out, fmt.Sprintf("visibleIf reads unknown field %q", field))
		}
		if field == hintPath {
			out = append(out, "visibleIf reads the field it hides")
		}
	}
	fieldspec.Walk(def, func(path string, _ fieldspec.FieldSpec, required bool) bool {
		if path == hintPath && required {
			out = append(out, "required field cannot be hidden by visibleIf")
		}
		return strings.HasPrefix(hintPath, path+".")
	})
	return out
}

func formatLocation(path string) string {
	if path == "" {
		return "(root)"
	}
	return strings.Join(strings.Split(path, "."), " > ")
}
