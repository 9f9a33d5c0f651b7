package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// Output formats supported by WriterEmitter.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Envelope is the serialized form of one collection result.
type Envelope struct {
	RunID     string                 `json:"run_id"`
	Kind      string                 `json:"kind"`
	Project   string                 `json:"project"`
	Duration  string                 `json:"duration"`
	Resources []Record               `json:"resources"`
	Errors    []resource.ErrorRecord `json:"errors"`
}

// Record is one emitted resource with its content fingerprint. The
// fingerprint ignores collection time, so it only changes when the
// resource does.
type Record struct {
	Fingerprint string            `json:"fingerprint"`
	Resource    resource.Resource `json:"resource"`
}

// WriterEmitter writes collection results to an io.Writer.
type WriterEmitter struct {
	format string

	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewWriterEmitter creates an emitter writing format to w.
func NewWriterEmitter(w io.Writer, format string) (*WriterEmitter, error) {
	switch format {
	case FormatJSON, FormatYAML, FormatTable:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &WriterEmitter{format: format, w: w}, nil
}

// NewFileEmitter creates an emitter writing format to the file at path.
// An empty path or "-" writes to stdout.
func NewFileEmitter(path, format string) (*WriterEmitter, error) {
	if path == "" || path == "-" {
		return NewWriterEmitter(os.Stdout, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	e, err := NewWriterEmitter(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	e.closer = f
	return e, nil
}

// Emit writes the result in the configured format.
func (e *WriterEmitter) Emit(_ context.Context, result resource.CollectResult) error {
	env, err := NewEnvelope(result)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.format {
	case FormatYAML:
		return e.writeYAML(env)
	case FormatTable:
		return e.writeTable(env)
	default:
		return e.writeJSON(env)
	}
}

// NewEnvelope fingerprints every resource of result.
func NewEnvelope(result resource.CollectResult) (Envelope, error) {
	env := Envelope{
		RunID:     result.RunID,
		Kind:      result.Kind,
		Project:   result.Project,
		Duration:  result.Duration.String(),
		Resources: make([]Record, 0, len(result.Resources)),
		Errors:    result.Errors,
	}
	if env.Errors == nil {
		env.Errors = []resource.ErrorRecord{}
	}

	for _, r := range result.Resources {
		hash, err := hashstructure.Hash(r, hashstructure.FormatV2, nil)
		if err != nil {
			return Envelope{}, fmt.Errorf("fingerprint %s: %w", r.Name, err)
		}
		env.Resources = append(env.Resources, Record{
			Fingerprint: fmt.Sprintf("%016x", hash),
			Resource:    r,
		})
	}
	return env, nil
}

func (e *WriterEmitter) writeJSON(env Envelope) error {
	if err := json.NewEncoder(e.w).Encode(env); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// writeYAML goes through JSON so YAML keys follow the JSON field names.
func (e *WriterEmitter) writeYAML(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if _, err := io.WriteString(e.w, "---\n"); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}

func (e *WriterEmitter) writeTable(env Envelope) error {
	table := tablewriter.NewWriter(e.w)
	table.SetHeader([]string{"Kind", "Name", "Region", "Type", "Primary IP", "Resource ID"})
	for _, rec := range env.Resources {
		r := rec.Resource
		table.Append([]string{
			env.Kind,
			r.Name,
			r.RegionCode,
			resource.ResourceType(r.CloudServiceGroup, r.CloudServiceType),
			r.PrimaryIPAddress,
			r.Reference.ResourceID,
		})
	}
	table.Render()

	if len(env.Errors) == 0 {
		return nil
	}

	errTable := tablewriter.NewWriter(e.w)
	errTable.SetHeader([]string{"Kind", "Entity ID", "Resource Type", "Error"})
	for _, rec := range env.Errors {
		errTable.Append([]string{env.Kind, rec.EntityID, rec.ResourceType, firstLine(rec.Message)})
	}
	errTable.Render()
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// Close closes the output file, if the emitter opened one.
func (e *WriterEmitter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
