package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var ErrUnknownOutput = errors.New("unknown output format")

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return errors.Wrap(enc.Encode(v), "unable to encode json")
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(v)
		if err != nil {
			return errors.Wrap(err, "unable to encode yaml")
		}

		return errors.Wrap(enc.Close(), "unable to flush yaml")
	}

	return errors.Wrapf(ErrUnknownOutput, "%q", format)
}
