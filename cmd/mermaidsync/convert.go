package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/expressions"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/validation"
	"github.com/rendis/mermaidsync/pkg/schema"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Print the diagram type of Mermaid text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), grammar.Detect(string(data)))
			return nil
		},
	}
}

type parseOpts struct {
	output   string
	typ      string
	name     string
	layout   bool
	validate bool
}

func newParseCmd() *cobra.Command {
	opts := parseOpts{validate: true}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse Mermaid text into a document record (JSON)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd.Context())
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var d *diagram.Document
			if opts.typ != "" {
				t := diagram.Type(opts.typ)
				if !t.Valid() {
					return schema.NewErrorf(schema.ErrCodeValidation, "unsupported diagram type %q", t)
				}
				d = grammar.ParseAs(t, string(data))
			} else {
				d = grammar.Parse(string(data))
			}

			if opts.layout {
				if err := layout.Arrange(cmd.Context(), d, buildLayouter(a.cfg, a.logger)); err != nil {
					return err
				}
			}

			if opts.validate {
				dv, err := validation.NewDocumentValidator()
				if err != nil {
					return err
				}
				result := dv.Validate(d)
				for _, w := range result.Warnings {
					a.logger.Warn(w.Message, "path", w.Path, "element_id", w.ElementID)
				}
				if err := result.ToError(); err != nil {
					return err
				}
			}

			name := opts.name
			if name == "" {
				name = store.DefaultName
				if len(args) > 0 && args[0] != "-" {
					name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}
			}
			now := time.Now().UTC()
			rec := &store.Record{
				Version:     store.RecordVersion,
				ID:          uuid.New().String(),
				Name:        name,
				DiagramType: d.Type,
				Document:    d,
				View:        store.DefaultView,
				Source:      grammar.Generate(d).Text,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.output, append(out, '\n'))
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.typ, "type", "t", "", "force a grammar instead of detecting it")
	cmd.Flags().StringVar(&opts.name, "name", "", "record name (default: file name)")
	cmd.Flags().BoolVar(&opts.layout, "layout", false, "assign geometry to every element")
	cmd.Flags().BoolVar(&opts.validate, "validate", opts.validate, "fail on validation errors")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate [file]",
		Short: "Generate Mermaid text from a record or document (JSON)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			d, err := decodeModel(data)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, []byte(grammar.Generate(d).Text))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "query <expression> [file]",
		Short: "Select elements with a CEL or expr predicate, or run a jq program",
		Long: `query evaluates an expression over a diagram read from Mermaid text or
JSON. With the cel and expr engines the expression is a predicate over
"el" and "kind" and the matching elements are printed; with jq it runs
over the whole document.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			d, err := decodeModel(data)
			if err != nil {
				return err
			}
			res, err := expressions.Run(cmd.Context(), engine, d, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", append(out, '\n'))
		},
	}

	cmd.Flags().StringVarP(&engine, "engine", "e", "cel", "expression engine: cel, expr, jq")
	return cmd
}

// decodeModel accepts a persisted record, a bare document, or Mermaid text.
func decodeModel(data []byte) (*diagram.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return grammar.Parse(string(data)), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid JSON input").WithCause(err)
	}
	raw := json.RawMessage(trimmed)
	if doc, ok := probe["document"]; ok {
		raw = doc
	}

	var d diagram.Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid document").WithCause(err)
	}
	if !d.Type.Valid() {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unsupported diagram type %q", d.Type)
	}
	return &d, nil
}
