// Package schema implements the schema & descriptor registry: it parses
// a tree of .proto files, resolves cross-file imports, and exposes an
// immutable Descriptor snapshot with dynamic encode/decode.
//
// Grounded on the dynamic proto-registration approach used for this
// codebase's gRPC service handling (protocompile.Compiler feeding
// protoreflect.FileDescriptor, dynamicpb for runtime message values).
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FileStatus records the load outcome for a single .proto file, surfaced
// to the admin status endpoint. Parse errors are reported, never fatal
// to the whole registry.
type FileStatus struct {
	File   string
	Loaded bool
	Error  string
}

// MethodSpec describes one RPC method resolved inside a single
// Descriptor snapshot.
type MethodSpec struct {
	FQMN           string // package.Service/Method
	RuleKey        string // lower(package).lower(service).lower(method)
	Service        string
	Method         string
	RequestType    string
	ResponseType   string
	RequestStream  bool
	ResponseStream bool
	desc           protoreflect.MethodDescriptor
}

// Descriptor returns the underlying protoreflect method descriptor, for
// callers that need full reflective access.
func (m *MethodSpec) Descriptor() protoreflect.MethodDescriptor { return m.desc }

// ServiceView is the admin-facing listing of a service and its methods.
type ServiceView struct {
	Name    string
	Methods []MethodSpec
}

// Descriptor is the immutable snapshot built on each (re)load. It must
// never be mutated after Load returns.
type Descriptor struct {
	files    []protoreflect.FileDescriptor
	types    map[string]protoreflect.Descriptor // fqtn (no leading dot) -> message/enum
	methods  map[string]*MethodSpec             // fqmn (no leading dot) -> spec
	services map[string]*ServiceView
	Statuses []FileStatus

	// constraintsExt and messageCelExt are the Wishmock constraint
	// extensions, captured the first time a loaded file imports
	// wishmock/validate.proto, so the validation engine can read them
	// back off arbitrary FieldOptions/MessageOptions values.
	constraintsExt protoreflect.ExtensionDescriptor
	messageCelExt  protoreflect.ExtensionDescriptor
}

func stripLeadingDot(s string) string {
	return strings.TrimPrefix(s, ".")
}

// Load parses every .proto file under protoDir (recursively), resolving
// imports against importPaths (well-known types and any shared proto
// roots) in addition to protoDir itself. It never returns an error for
// individual file parse failures; those are reported in Statuses, even
// when no file parses at all. It returns an error only when the
// directory itself cannot be walked.
func Load(protoDir string, importPaths []string, log *slog.Logger) (*Descriptor, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var protoFiles []string
	err := filepath.Walk(protoDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".proto") {
			rel, rerr := filepath.Rel(protoDir, path)
			if rerr != nil {
				rel = path
			}
			protoFiles = append(protoFiles, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schema: walking %s: %w", protoDir, err)
	}
	sort.Strings(protoFiles)

	roots := append([]string{protoDir}, importPaths...)
	resolver := protocompile.WithStandardImports(&fileSystemResolver{roots: roots})
	compiler := &protocompile.Compiler{
		Resolver:       resolver,
		SourceInfoMode: protocompile.SourceInfoStandard,
	}

	d := &Descriptor{
		types:    make(map[string]protoreflect.Descriptor),
		methods:  make(map[string]*MethodSpec),
		services: make(map[string]*ServiceView),
	}

	for _, f := range protoFiles {
		files, cerr := compiler.Compile(context.Background(), f)
		if cerr != nil {
			log.Warn("schema: failed to parse proto file", "file", f, "error", cerr)
			d.Statuses = append(d.Statuses, FileStatus{File: f, Loaded: false, Error: cerr.Error()})
			continue
		}
		for _, fd := range files {
			d.indexFile(fd)
		}
		d.Statuses = append(d.Statuses, FileStatus{File: f, Loaded: true})
	}
	return d, nil
}

func (d *Descriptor) indexFile(fd protoreflect.FileDescriptor) {
	d.files = append(d.files, fd)
	d.captureConstraintExtensions(fd)

	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		d.indexMessage(msgs.Get(i))
	}
	enums := fd.Enums()
	for i := 0; i < enums.Len(); i++ {
		e := enums.Get(i)
		d.types[stripLeadingDot(string(e.FullName()))] = e
	}

	svcs := fd.Services()
	for i := 0; i < svcs.Len(); i++ {
		svc := svcs.Get(i)
		view := &ServiceView{Name: string(svc.FullName())}
		methods := svc.Methods()
		for j := 0; j < methods.Len(); j++ {
			m := methods.Get(j)
			fqmn := fmt.Sprintf("%s/%s", svc.FullName(), m.Name())
			ruleKey := strings.ToLower(fmt.Sprintf("%s.%s.%s", fd.Package(), svc.Name(), m.Name()))
			spec := &MethodSpec{
				FQMN:           fqmn,
				RuleKey:        ruleKey,
				Service:        string(svc.FullName()),
				Method:         string(m.Name()),
				RequestType:    stripLeadingDot(string(m.Input().FullName())),
				ResponseType:   stripLeadingDot(string(m.Output().FullName())),
				RequestStream:  m.IsStreamingClient(),
				ResponseStream: m.IsStreamingServer(),
				desc:           m,
			}
			d.methods[stripLeadingDot(fqmn)] = spec
			view.Methods = append(view.Methods, *spec)
		}
		d.services[view.Name] = view
	}
}

func (d *Descriptor) indexMessage(m protoreflect.MessageDescriptor) {
	d.types[stripLeadingDot(string(m.FullName()))] = m
	nested := m.Messages()
	for i := 0; i < nested.Len(); i++ {
		d.indexMessage(nested.Get(i))
	}
	enums := m.Enums()
	for i := 0; i < enums.Len(); i++ {
		e := enums.Get(i)
		d.types[stripLeadingDot(string(e.FullName()))] = e
	}
}

// ErrNotFound is returned by lookups that miss.
type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) }

// LookupMethod resolves a fully-qualified method name to its MethodSpec.
func (d *Descriptor) LookupMethod(fqmn string) (*MethodSpec, error) {
	spec, ok := d.methods[stripLeadingDot(fqmn)]
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("method not found: %s", fqmn))
	}
	return spec, nil
}

// MessageDescriptor resolves a fully-qualified type name to its
// protoreflect.MessageDescriptor, if it names a message (not an enum).
func (d *Descriptor) MessageDescriptor(typeName string) (protoreflect.MessageDescriptor, error) {
	desc, ok := d.types[stripLeadingDot(typeName)]
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("type not found: %s", typeName))
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("type is not a message: %s", typeName))
	}
	return md, nil
}

// ListServices returns every service known to this snapshot, sorted by
// name for deterministic admin output.
func (d *Descriptor) ListServices() []ServiceView {
	out := make([]ServiceView, 0, len(d.services))
	for _, v := range d.services {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServiceCount and MethodCount support admin status reporting.
func (d *Descriptor) ServiceCount() int { return len(d.services) }
func (d *Descriptor) MethodCount() int  { return len(d.methods) }

// Files returns every parsed file descriptor, in load order.
func (d *Descriptor) Files() []protoreflect.FileDescriptor { return d.files }

// AllMessageTypes returns every message descriptor known to this
// snapshot, used by the validation engine to build an IR per type.
func (d *Descriptor) AllMessageTypes() []protoreflect.MessageDescriptor {
	out := make([]protoreflect.MessageDescriptor, 0, len(d.types))
	for _, desc := range d.types {
		if md, ok := desc.(protoreflect.MessageDescriptor); ok {
			out = append(out, md)
		}
	}
	return out
}

// captureConstraintExtensions walks fd's direct imports for the bundled
// constraints schema and remembers its extension descriptors. Safe to
// call repeatedly; the first sighting wins.
func (d *Descriptor) captureConstraintExtensions(fd protoreflect.FileDescriptor) {
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		imp := imports.Get(i)
		if imp.Path() != OptionsProtoPath {
			continue
		}
		exts := imp.Extensions()
		for j := 0; j < exts.Len(); j++ {
			ext := exts.Get(j)
			switch ext.Name() {
			case "constraints":
				d.constraintsExt = ext
			case "message_cel":
				d.messageCelExt = ext
			}
		}
	}
}

// ConstraintsExtension and MessageCelExtension expose the Wishmock
// constraint extensions discovered while loading, or nil if no loaded
// file imported wishmock/validate.proto.
func (d *Descriptor) ConstraintsExtension() protoreflect.ExtensionDescriptor { return d.constraintsExt }
func (d *Descriptor) MessageCelExtension() protoreflect.ExtensionDescriptor  { return d.messageCelExt }
