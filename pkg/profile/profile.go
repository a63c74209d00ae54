// Package profile round-trips a build Configuration to and from the
// declarative YAML profile document. A profile captures one configuration
// exactly; applying a profile goes through the same resolver and validation
// as the configure command and the interactive flow.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

// FormatVersion is the current profile document format version.
const FormatVersion = 1

// Document is the serialized form of a package selection plus configuration.
// Optional fields absent from an older document fall back to built-in
// defaults when applied; unknown fields are rejected, not ignored.
type Document struct {
	Version       int      `yaml:"version"`
	Packages      []string `yaml:"packages,omitempty"`
	Architectures []string `yaml:"architectures,omitempty"`
	Target        *string  `yaml:"target,omitempty"`
	Options       Options  `yaml:"options,omitempty"`
	Programs      Programs `yaml:"programs,omitempty"`
	Advanced      map[string]bool `yaml:"advanced,omitempty"`
}

// Options carries scalar build options. Pointer fields distinguish "absent"
// from an explicit zero value.
type Options struct {
	BuildType     *string `yaml:"build-type,omitempty"`
	InstallPrefix *string `yaml:"install-prefix,omitempty"`
	BSPPath       *string `yaml:"bsp-path,omitempty"`
	P4PPFlags     *string `yaml:"p4ppflags,omitempty"`
	ExtraCPPFlags *string `yaml:"extra-cppflags,omitempty"`
	P4Flags       *string `yaml:"p4flags,omitempty"`
	KernelModules *bool   `yaml:"kernel-modules,omitempty"`
	KDir          *string `yaml:"kdir,omitempty"`
}

// Programs selects the P4 program set and its control-plane code.
type Programs struct {
	P4           []string `yaml:"p4,omitempty"`
	ControlPlane *string  `yaml:"control-plane,omitempty"`
}

// Create captures a live Configuration as a profile document. Every field is
// written out, so applying the document reproduces the configuration
// field-for-field.
func Create(cfg config.Configuration) *Document {
	target := string(cfg.DeploymentTarget)
	buildType := string(cfg.BuildType)
	controlPlane := string(cfg.ControlPlane)
	archs := make([]string, len(cfg.Architectures))
	for i, a := range cfg.Architectures {
		archs[i] = string(a)
	}

	doc := &Document{
		Version:       FormatVersion,
		Packages:      append([]string(nil), cfg.Packages...),
		Architectures: archs,
		Target:        &target,
		Options: Options{
			BuildType:     &buildType,
			InstallPrefix: strPtr(cfg.InstallPrefix),
			BSPPath:       strPtr(cfg.BSPPath),
			P4PPFlags:     strPtr(cfg.P4PPFlags),
			ExtraCPPFlags: strPtr(cfg.ExtraCPPFlags),
			P4Flags:       strPtr(cfg.P4Flags),
			KernelModules: boolPtr(cfg.KernelModules),
			KDir:          strPtr(cfg.KDir),
		},
		Programs: Programs{
			P4:           append([]string(nil), cfg.P4Programs...),
			ControlPlane: &controlPlane,
		},
	}
	if len(cfg.Advanced) > 0 {
		doc.Advanced = make(map[string]bool, len(cfg.Advanced))
		for k, v := range cfg.Advanced {
			doc.Advanced[k] = v
		}
	}
	return doc
}

// Parse decodes a profile document, rejecting unknown fields so a stale tool
// never silently drops options a newer profile sets.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errdefs.InvalidConfiguration("profile document is empty", nil)
		}
		if isUnknownField(err) {
			return nil, errdefs.UnrecognizedOption("profile contains an unrecognized option", err)
		}
		return nil, errdefs.InvalidConfiguration("profile document malformed", err)
	}
	if doc.Version > FormatVersion {
		return nil, errdefs.UnrecognizedOption(
			fmt.Sprintf("profile format version %d is newer than supported version %d",
				doc.Version, FormatVersion), nil)
	}
	return &doc, nil
}

// isUnknownField reports whether a decode error is the strict decoder
// rejecting a field the Document type does not declare, as opposed to a
// scalar type mismatch, which is also reported through yaml.TypeError.
func isUnknownField(err error) bool {
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		return false
	}
	for _, msg := range typeErr.Errors {
		if strings.Contains(msg, "not found in type") {
			return true
		}
	}
	return false
}

// Load reads and parses a profile document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Encode renders the document as YAML.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the document to disk.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Overrides converts the document to a configuration override layer. Absent
// fields stay nil and keep the defaults layer's values.
func (d *Document) Overrides() config.Overrides {
	var o config.Overrides
	if d.Packages != nil {
		o.Packages = append([]string(nil), d.Packages...)
	}
	if d.Architectures != nil {
		archs := make([]registry.Architecture, len(d.Architectures))
		for i, a := range d.Architectures {
			archs[i] = registry.Architecture(a)
		}
		o.Architectures = archs
	}
	if d.Target != nil {
		t := config.DeploymentTarget(*d.Target)
		o.DeploymentTarget = &t
	}
	if d.Options.BuildType != nil {
		b := config.BuildType(*d.Options.BuildType)
		o.BuildType = &b
	}
	o.InstallPrefix = d.Options.InstallPrefix
	o.BSPPath = d.Options.BSPPath
	o.P4PPFlags = d.Options.P4PPFlags
	o.ExtraCPPFlags = d.Options.ExtraCPPFlags
	o.P4Flags = d.Options.P4Flags
	o.KernelModules = d.Options.KernelModules
	o.KDir = d.Options.KDir
	if d.Programs.P4 != nil {
		o.P4Programs = append([]string(nil), d.Programs.P4...)
	}
	if d.Programs.ControlPlane != nil {
		cp := config.ControlPlane(*d.Programs.ControlPlane)
		o.ControlPlane = &cp
	}
	if d.Advanced != nil {
		o.Advanced = make(map[string]bool, len(d.Advanced))
		for k, v := range d.Advanced {
			o.Advanced[k] = v
		}
	}
	return o
}

// Apply derives a Configuration from the document through the shared
// resolver, so profiles validate under exactly the rules the configure
// command and the interactive flow use.
func Apply(doc *Document, resolver *config.Resolver, defaults config.Configuration) (config.Configuration, error) {
	return resolver.Resolve(defaults, doc.Overrides(), config.Overrides{})
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
