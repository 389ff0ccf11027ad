package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type renderer struct {
	w    io.Writer
	json bool
}

func newRenderer(w io.Writer, format string) (*renderer, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return &renderer{w: w}, nil
	case "json":
		return &renderer{w: w, json: true}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func (r *renderer) render(v any) error {
	if r.json {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
