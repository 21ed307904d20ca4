// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// batchFile is the layout of a topics file. Either form is accepted:
//
//	topics:
//	  - Go generics
//	  - topic: Rust ownership
//	    tone: technical
//
// or a bare list of the same entries.
type batchFile struct {
	Defaults batchEntry   `yaml:"defaults"`
	Topics   []batchEntry `yaml:"topics"`
}

// batchEntry is a topic given as a plain string or a full Input mapping.
// publish is nil when the mapping leaves the key out.
type batchEntry struct {
	Input
	publish *bool
}

func (e *batchEntry) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.Topic = n.Value
		return nil
	}
	if err := n.Decode(&e.Input); err != nil {
		return err
	}
	var flags struct {
		Publish *bool `yaml:"publish"`
	}
	if err := n.Decode(&flags); err != nil {
		return err
	}
	e.publish = flags.Publish
	return nil
}

// LoadInputs parses a topics file. Values under "defaults" fill the empty
// fields of every topic. publish applies to topics for which neither the
// entry nor the defaults set the publish key.
func LoadInputs(r io.Reader, publish bool) ([]Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading topics: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing topics: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("topics file is empty")
	}

	var f batchFile
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&f.Topics); err != nil {
			return nil, fmt.Errorf("parsing topics: %w", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing topics: %w", err)
		}
	default:
		return nil, errors.New("topics file must be a list or a mapping with a topics key")
	}
	if len(f.Topics) == 0 {
		return nil, errors.New("topics file lists no topics")
	}

	inputs := make([]Input, len(f.Topics))
	for i, e := range f.Topics {
		in := e.Input.withDefaults(f.Defaults.Input)
		switch {
		case e.publish != nil:
			in.Publish = *e.publish
		case f.Defaults.publish != nil:
			in.Publish = *f.Defaults.publish
		default:
			in.Publish = publish
		}
		inputs[i] = in
	}
	return inputs, nil
}

// LoadInputsFile is LoadInputs on the named file.
func LoadInputsFile(path string, publish bool) ([]Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadInputs(f, publish)
}

func (in Input) withDefaults(d Input) Input {
	if in.Requirements == "" {
		in.Requirements = d.Requirements
	}
	if in.Audience == "" {
		in.Audience = d.Audience
	}
	if in.Tone == "" {
		in.Tone = d.Tone
	}
	if in.WordCount == 0 {
		in.WordCount = d.WordCount
	}
	return in
}
