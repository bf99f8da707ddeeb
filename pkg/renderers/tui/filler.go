// Package tui fills a bound runtime form from the terminal. Every descriptor
// becomes a prompt; answers are written through the form so the same
// validator that guards persistence decides whether to ask again.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/valuepath"
	"github.com/goliatone/go-customfields/pkg/visibility"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

const defaultMaxAttempts = 5

// Filler walks descriptors and prompts for each field.
type Filler struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	maxAttempts  int
}

// New constructs a Filler with the survey driver and JSON output.
func New(options ...Option) *Filler {
	f := &Filler{
		outputFormat: OutputFormatJSON,
		maxAttempts:  defaultMaxAttempts,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	return f
}

// ContentType reports the serialization format used by Render.
func (f *Filler) ContentType() string {
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Fill prompts for every field of the bound form and submits it.
func (f *Filler) Fill(ctx context.Context, form *runtime.Form) (runtime.Submission, error) {
	if ctx == nil {
		return runtime.Submission{}, errors.New("tui: context is required")
	}
	if form == nil {
		return runtime.Submission{}, errors.New("tui: form is nil")
	}
	descriptors := form.Descriptors()
	if descriptors == nil {
		return runtime.Submission{}, runtime.ErrNotReady
	}
	for _, field := range descriptors {
		if err := f.promptField(ctx, form, field, field.Path); err != nil {
			return runtime.Submission{}, err
		}
	}
	submission, err := form.Submit()
	if err != nil {
		for path, msg := range form.Errors() {
			_ = f.driver.Info(ctx, fmt.Sprintf("%s%s: %s", f.theme.ErrorPrefix, path, msg))
		}
		return runtime.Submission{}, err
	}
	return submission, nil
}

// Render fills the form and serializes the submitted value.
func (f *Filler) Render(ctx context.Context, form *runtime.Form) ([]byte, error) {
	submission, err := f.Fill(ctx, form)
	if err != nil {
		return nil, err
	}
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(submission.Value)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(submission.Value)), nil
	default:
		return json.Marshal(submission.Value)
	}
}

// promptField asks for the descriptor at value path. The path differs from
// field.Path inside repeaters, where "items" is replaced by an index.
func (f *Filler) promptField(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	if field.Error != "" {
		return f.driver.Info(ctx, fmt.Sprintf("%sskipping %s: %s", f.theme.InfoPrefix, path, field.Error))
	}
	if !visibility.Visible(field.VisibleIf, form.Value()) {
		return nil
	}
	switch field.Widget {
	case widgets.KindFieldset:
		for _, child := range field.Nested {
			if err := f.promptField(ctx, form, child, path+"."+child.Name); err != nil {
				return err
			}
		}
		return nil
	case widgets.KindRepeater:
		return f.promptRepeater(ctx, form, field, path)
	case widgets.KindList:
		return f.promptList(ctx, form, field, path)
	case widgets.KindMultiSelect, widgets.KindCheckboxes:
		return f.promptMulti(ctx, form, field, path)
	case widgets.KindSelect, widgets.KindRadio:
		return f.promptSelect(ctx, form, field, path)
	case widgets.KindCheckbox, widgets.KindToggle:
		return f.promptBoolean(ctx, form, field, path)
	case widgets.KindNumber, widgets.KindRange:
		return f.promptNumber(ctx, form, field, path)
	default:
		return f.promptString(ctx, form, field, path)
	}
}

// ask repeats read until the form accepts the answer at path. read returns
// the value to store and whether anything was entered.
func (f *Filler) ask(ctx context.Context, form *runtime.Form, path string, read func() (any, bool, error)) error {
	for attempt := 1; ; attempt++ {
		value, entered, err := read()
		if err != nil {
			return err
		}
		if entered {
			err = form.SetField(path, value)
		} else {
			_, err = form.Validate()
		}
		if err != nil {
			return err
		}
		msg, failed := form.Errors()[path]
		if !failed {
			return nil
		}
		_ = f.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %s", f.theme.ErrorPrefix, path, msg))
		if f.maxAttempts > 0 && attempt >= f.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, path)
		}
	}
}

func (f *Filler) promptString(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	return f.ask(ctx, form, path, func() (any, bool, error) {
		defaultVal := currentString(form, path, field.Default)
		var (
			response string
			err      error
		)
		if field.Widget == widgets.KindTextarea {
			response, err = f.driver.TextArea(ctx, TextAreaConfig{Message: label(field), Default: defaultVal, Help: help(field)})
		} else {
			response, err = f.driver.Input(ctx, InputConfig{Message: label(field), Default: defaultVal, Help: help(field)})
		}
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(response) == "" {
			return nil, false, nil
		}
		return response, true, nil
	})
}

func (f *Filler) promptNumber(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	integer := field.Type == "integer"
	return f.ask(ctx, form, path, func() (any, bool, error) {
		for {
			input, err := f.driver.Input(ctx, InputConfig{Message: label(field), Default: currentNumber(form, path, field.Default), Help: help(field)})
			if err != nil {
				return nil, false, err
			}
			input = strings.TrimSpace(input)
			if input == "" {
				return nil, false, nil
			}
			if integer {
				if n, err := strconv.ParseInt(input, 10, 64); err == nil {
					return n, true, nil
				}
			} else if n, err := strconv.ParseFloat(input, 64); err == nil {
				return n, true, nil
			}
			_ = f.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: not a number", f.theme.ErrorPrefix, path))
		}
	})
}

func (f *Filler) promptBoolean(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	return f.ask(ctx, form, path, func() (any, bool, error) {
		defaultVal, _ := field.Default.(bool)
		if v, ok := currentValue(form, path); ok {
			if b, ok := v.(bool); ok {
				defaultVal = b
			}
		}
		resp, err := f.driver.Confirm(ctx, ConfirmConfig{Message: label(field), Default: defaultVal, Help: help(field)})
		return resp, err == nil, err
	})
}

func (f *Filler) promptSelect(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	labels := optionLabels(field.Options)
	return f.ask(ctx, form, path, func() (any, bool, error) {
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      label(field),
			Options:      labels,
			DefaultIndex: optionIndex(field.Options, currentString(form, path, field.Default)),
			Help:         help(field),
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, false, nil
		}
		return field.Options[idx].Value, true, nil
	})
}

func (f *Filler) promptMulti(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	labels := optionLabels(field.Options)
	return f.ask(ctx, form, path, func() (any, bool, error) {
		indices, err := f.driver.MultiSelect(ctx, SelectConfig{Message: label(field), Options: labels, Help: help(field)})
		if err != nil {
			return nil, false, err
		}
		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(field.Options) {
				selected = append(selected, field.Options[idx].Value)
			}
		}
		if len(selected) == 0 && !field.Required {
			return nil, false, nil
		}
		return selected, true, nil
	})
}

func (f *Filler) promptList(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	if field.Items == nil {
		return fmt.Errorf("tui: list field %s has no item descriptor", path)
	}
	idx := 0
	for attempt := 1; ; attempt++ {
		for ; ; idx++ {
			more, err := f.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add item to %s?", label(field)), Default: idx == 0 && field.Required})
			if err != nil {
				return err
			}
			if !more {
				break
			}
			item := *field.Items
			item.Label = fmt.Sprintf("%s #%d", field.Label, idx+1)
			if err := f.promptField(ctx, form, item, fmt.Sprintf("%s.%d", path, listLen(form, path))); err != nil {
				return err
			}
		}
		if _, err := form.Validate(); err != nil {
			return err
		}
		msg, failed := form.Errors()[path]
		if !failed {
			return nil
		}
		_ = f.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %s", f.theme.ErrorPrefix, path, msg))
		if f.maxAttempts > 0 && attempt >= f.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, path)
		}
	}
}

func (f *Filler) promptRepeater(ctx context.Context, form *runtime.Form, field model.Descriptor, path string) error {
	for idx := 0; ; idx++ {
		more, err := f.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add entry to %s?", label(field)), Default: idx == 0 && field.Required})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		itemPath := fmt.Sprintf("%s.%d", path, listLen(form, path))
		if err := form.SetField(itemPath, map[string]any{}); err != nil {
			return err
		}
		for _, child := range field.Nested {
			if err := f.promptField(ctx, form, child, itemPath+"."+child.Name); err != nil {
				return err
			}
		}
	}
}

// listLen is the index the next item of the list at path is appended at.
func listLen(form *runtime.Form, path string) int {
	current, _ := valuepath.Get(form.Value(), path)
	items, _ := current.([]any)
	return len(items)
}

func label(field model.Descriptor) string {
	text := field.Label
	if text == "" {
		text = field.Name
	}
	if field.Required {
		text += " *"
	}
	return text
}

func help(field model.Descriptor) string {
	if field.HelpText != "" {
		return field.HelpText
	}
	if field.Description != "" {
		return field.Description
	}
	return field.Placeholder
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label
	}
	return out
}

func optionIndex(options []model.Option, value string) int {
	for i, opt := range options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func currentValue(form *runtime.Form, path string) (any, bool) {
	return valuepath.Get(form.Value(), path)
}

func currentString(form *runtime.Form, path string, def any) string {
	if v, ok := currentValue(form, path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if s, ok := def.(string); ok {
		return s
	}
	return ""
}

func currentNumber(form *runtime.Form, path string, def any) string {
	if v, ok := currentValue(form, path); ok && v != nil {
		return fmt.Sprint(v)
	}
	if def != nil {
		return fmt.Sprint(def)
	}
	return ""
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}
