package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	customfields "github.com/goliatone/go-customfields"
	"github.com/goliatone/go-customfields/pkg/client"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/openapi"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/renderers/html"
	"github.com/goliatone/go-customfields/pkg/renderers/tui"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/values"
)

func runDescribe(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "describe")
	hintsPath := fs.String("hints", "", "UI hint file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errFailed
	}
	schema, err := customfields.LocalSchema(ctx, fs.Arg(0), *hintsPath)
	if err != nil {
		return err
	}
	engine := customfields.New()
	return writeJSON(e, engine.Builder.Build(schema.Definition, schema.UIHints))
}

func runCheck(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errFailed
	}
	def, err := customfields.LoadDefinition(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("read value: %w", err)
	}
	var candidate any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	validator, err := validation.Build(def)
	if err != nil {
		return err
	}
	result := validator.Check(candidate)
	if err := writeJSON(e, result); err != nil {
		return err
	}
	if !result.OK {
		return errFailed
	}
	return nil
}

func runFill(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "fill")
	hintsPath := fs.String("hints", "", "UI hint file")
	format := fs.String("format", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	server := fs.String("server", "", "base URL of a customfield-server; binds the form to -schema")
	schemaID := fs.String("schema", "", "schema id on the server")
	company := fs.Int64("company", 0, "company id sent as the caller identity")
	entityID := fs.Int64("entity", 0, "store the submission as this entity's value")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		fetcher runtime.Fetcher
		api     *client.Client
		bindID  string
	)
	switch {
	case *server != "":
		if *schemaID == "" {
			return errors.New("-schema is required with -server")
		}
		api = client.New(*server, client.WithCaller(callerFor(*company)))
		fetcher = runtime.FetcherFunc(api.GetSchema)
		bindID = *schemaID
	case fs.NArg() == 1:
		schema, err := customfields.LocalSchema(ctx, fs.Arg(0), *hintsPath)
		if err != nil {
			return err
		}
		fetcher = customfields.StaticFetcher(schema)
		bindID = schema.ID
	default:
		fs.Usage()
		return errFailed
	}

	form := runtime.New(fetcher)
	if err := form.Bind(ctx, bindID, runtime.BindOptions{}); err != nil {
		return err
	}
	filler := tui.New(
		tui.WithOutputFormat(tui.OutputFormat(*format)),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
	)
	out, err := filler.Render(ctx, form)
	if err != nil {
		return err
	}
	if api == nil || *entityID == 0 {
		fmt.Fprintln(e.stdout, string(out))
		return nil
	}

	schema, _ := form.Schema()
	stored, err := api.CreateValue(ctx, values.CreateInput{
		SchemaID:   schema.ID,
		EntityType: schema.EntityType,
		EntityID:   *entityID,
		Value:      form.Value(),
	})
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			mapping, mapErr := form.ApplyServerErrors(serverPayload(apiErr.Fields))
			if mapErr == nil {
				reportServerErrors(e, mapping)
				return errFailed
			}
		}
		return err
	}
	return writeJSON(e, stored)
}

func runPreview(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "preview")
	hintsPath := fs.String("hints", "", "UI hint file")
	output := fs.String("output", "", "output file (stdout if empty)")
	stylesheet := fs.String("stylesheet", "", "stylesheet href linked from the page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errFailed
	}
	schema, err := customfields.LocalSchema(ctx, fs.Arg(0), *hintsPath)
	if err != nil {
		return err
	}
	renderer, err := html.New(html.WithStylesheet(*stylesheet))
	if err != nil {
		return err
	}
	page, err := renderer.RenderString(html.Page{
		Title:       schema.Name,
		SchemaID:    schema.ID,
		Version:     schema.Version,
		Descriptors: customfields.New().Builder.Build(schema.Definition, schema.UIHints),
	})
	if err != nil {
		return err
	}
	return writeOutput(e, *output, []byte(page))
}

func runOpenAPI(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "openapi")
	title := fs.String("title", "Custom fields", "document title")
	entity := fs.String("entity", string(registry.EntityEmployee), "entity type recorded on every component")
	output := fs.String("output", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errFailed
	}
	entityType, err := registry.ParseEntityType(*entity)
	if err != nil {
		return err
	}
	schemas := make([]registry.Schema, 0, fs.NArg())
	for _, path := range fs.Args() {
		schema, err := customfields.LocalSchema(ctx, path, "")
		if err != nil {
			return err
		}
		schema.EntityType = entityType
		schemas = append(schemas, schema)
	}
	data, err := openapi.Marshal(openapi.Document(*title, "1", schemas...))
	if err != nil {
		return err
	}
	return writeOutput(e, *output, data)
}

func runImportOpenAPI(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "import-openapi")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errFailed
	}
	doc, err := openapi.Load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if fs.NArg() == 1 {
		for _, name := range openapi.Components(doc) {
			fmt.Fprintln(e.stdout, name)
		}
		return nil
	}
	def, err := openapi.Import(doc, fs.Arg(1))
	if err != nil {
		return err
	}
	data, err := fieldspec.Encode(def)
	if err != nil {
		return err
	}
	return writeOutput(e, "", data)
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "export")
	server := fs.String("server", "", "base URL of a customfield-server")
	schemaID := fs.String("schema", "", "schema id")
	company := fs.Int64("company", 0, "company id sent as the caller identity")
	output := fs.String("output", "", "xlsx file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *server == "" || *schemaID == "" || *output == "" {
		fs.Usage()
		return errFailed
	}
	api := client.New(*server, client.WithCaller(callerFor(*company)))
	data, err := api.ExportValues(ctx, *schemaID)
	if err != nil {
		return err
	}
	return writeOutput(e, *output, data)
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := flagSet(e, "import")
	server := fs.String("server", "", "base URL of a customfield-server")
	schemaID := fs.String("schema", "", "schema id")
	company := fs.Int64("company", 0, "company id sent as the caller identity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *server == "" || *schemaID == "" || fs.NArg() != 1 {
		fs.Usage()
		return errFailed
	}
	workbook, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	api := client.New(*server, client.WithCaller(callerFor(*company)))
	report, err := api.ImportValues(ctx, *schemaID, workbook)
	if err != nil {
		return err
	}
	if err := writeJSON(e, report); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return errFailed
	}
	return nil
}

func callerFor(company int64) registry.Caller {
	if company > 0 {
		return registry.Tenant(company)
	}
	return registry.Admin()
}

func serverPayload(fields map[string]string) map[string][]string {
	out := make(map[string][]string, len(fields))
	for path, msg := range fields {
		out[path] = []string{msg}
	}
	return out
}

func reportServerErrors(e *env, mapping runtime.ErrorMapping) {
	for path, messages := range mapping.Fields {
		fmt.Fprintf(e.stderr, "%s: %s\n", path, strings.Join(messages, "; "))
	}
	for _, msg := range mapping.Form {
		fmt.Fprintf(e.stderr, "%s\n", msg)
	}
}

func writeJSON(e *env, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(e, "", data)
}

func writeOutput(e *env, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(e.stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(e.stderr, "written to %s (%s bytes)\n", path, strconv.Itoa(len(data)))
	return nil
}
