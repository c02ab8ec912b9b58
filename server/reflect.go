package server

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// Lookup describes where a foreign-key argument's display values live.
type Lookup struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Name  string `json:"name"`
}

// InputDescriptor is one accepted parameter in a meta-data record.
type InputDescriptor struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Lookup *Lookup `json:"lookup,omitempty"`
}

// EndpointRecord describes one discovered endpoint. A file that fails to
// parse or classify still yields a record, with Error set and the rest empty;
// a listing never aborts as a whole.
type EndpointRecord struct {
	Path        string            `json:"path"`
	Verb        string            `json:"verb"`
	Input       []InputDescriptor `json:"input,omitempty"`
	Auth        []string          `json:"auth,omitempty"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type,omitempty"`
	Produces    string            `json:"produces,omitempty"`
	Consumes    string            `json:"consumes,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Classifier contributes meta-data fields for one endpoint. It receives the
// full parsed script, the verb, and the extracted argument descriptors, and
// returns field name/value pairs. The well-known fields type, produces and
// consumes land on the record itself; anything else goes under Extra.
type Classifier func(script *lambda.Node, verb string, input []InputDescriptor) (map[string]string, error)

// Reflector produces structured endpoint descriptions by re-reading storage
// on every pass. Nothing is cached, so the listing can never serve stale
// documentation.
type Reflector struct {
	root        string
	fs          files.Provider
	classifiers []Classifier
}

// NewReflector creates a reflector with the default classifier chain.
func NewReflector(root string, fs files.Provider) *Reflector {
	r := &Reflector{root: root, fs: fs}
	r.Register(typeClassifier)
	r.Register(contentClassifier)
	return r
}

// Register appends a classifier to the chain. Classifiers run in
// registration order; registration belongs to startup.
func (r *Reflector) Register(fn Classifier) {
	r.classifiers = append(r.classifiers, fn)
}

// List walks the permitted roots and returns one record per endpoint file.
func (r *Reflector) List() ([]EndpointRecord, error) {
	var out []EndpointRecord
	for _, top := range []string{"modules", "system"} {
		dir := filepath.Join(r.root, top)
		records, err := r.walk(dir, top)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (r *Reflector) walk(dir, url string) ([]EndpointRecord, error) {
	var out []EndpointRecord

	names, err := r.fs.ListFiles(dir, ".hl")
	if err != nil {
		// A missing permitted root simply has no endpoints.
		if url == "modules" || url == "system" {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, file := range names {
		base := filepath.Base(file)
		name, verb, ok := splitEndpointName(base)
		if !ok {
			continue
		}
		out = append(out, r.reflectFile(file, url+"/"+name, verb))
	}

	folders, err := r.fs.ListFolders(dir)
	if err != nil {
		return nil, fmt.Errorf("listing folders %s: %w", dir, err)
	}
	for _, folder := range folders {
		base := filepath.Base(folder)
		if !legalSegment(base) {
			continue
		}
		records, err := r.walk(folder, url+"/"+base)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// splitEndpointName splits "name.verb.hl" and rejects interceptor and
// companion files.
func splitEndpointName(base string) (name, verb string, ok bool) {
	if base == interceptorFile {
		return "", "", false
	}
	trimmed := strings.TrimSuffix(base, ".hl")
	idx := strings.LastIndex(trimmed, ".")
	if idx <= 0 {
		return "", "", false
	}
	name, verb = trimmed[:idx], trimmed[idx+1:]
	if !verbs[verb] || strings.HasSuffix(name, ".lookups") {
		return "", "", false
	}
	return name, verb, true
}

// reflectFile builds the record for one endpoint file. Parse and
// classification failures are downgraded to the record's error field.
func (r *Reflector) reflectFile(file, url, verb string) EndpointRecord {
	rec := EndpointRecord{Path: url, Verb: verb}

	src, err := r.fs.Read(file)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	script, err := lambda.Parse(src)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	if decl := script.Child(declarationName); decl != nil {
		for _, a := range decl.Children() {
			rec.Input = append(rec.Input, InputDescriptor{Name: a.Name, Type: lambda.ToString(a.Value)})
		}
	}
	if isMutatingVerb(verb) {
		r.resolveLookups(file, &rec)
	}
	if auth := script.Child(authPredicateName); auth != nil {
		rec.Auth = splitRoles(lambda.ToString(auth.Value))
	}
	if desc := script.Child(descriptionName); desc != nil {
		rec.Description = lambda.ToString(desc.Value)
	}

	for _, classify := range r.classifiers {
		fields, err := classify(script, verb, rec.Input)
		if err != nil {
			rec.Error = err.Error()
			return rec
		}
		for key, value := range fields {
			switch key {
			case "type":
				rec.Type = value
			case "produces":
				rec.Produces = value
			case "consumes":
				rec.Consumes = value
			default:
				if rec.Extra == nil {
					rec.Extra = map[string]string{}
				}
				rec.Extra[key] = value
			}
		}
	}
	return rec
}

// resolveLookups reads the endpoint's companion "<name>.lookups.hl" file, if
// present, and attaches foreign-key lookups to matching input descriptors.
// Each root child names an argument and carries table/key/name children.
func (r *Reflector) resolveLookups(endpointFile string, rec *EndpointRecord) {
	companion := strings.TrimSuffix(endpointFile, "."+rec.Verb+".hl") + ".lookups.hl"
	if !r.fs.Exists(companion) {
		return
	}
	src, err := r.fs.Read(companion)
	if err != nil {
		return
	}
	tree, err := lambda.Parse(src)
	if err != nil {
		return
	}
	for i := range rec.Input {
		entry := tree.Child(rec.Input[i].Name)
		if entry == nil {
			continue
		}
		lookup := &Lookup{}
		if t := entry.Child("table"); t != nil {
			lookup.Table = lambda.ToString(t.Value)
		}
		if k := entry.Child("key"); k != nil {
			lookup.Key = lambda.ToString(k.Value)
		}
		if n := entry.Child("name"); n != nil {
			lookup.Name = lambda.ToString(n.Value)
		}
		rec.Input[i].Lookup = lookup
	}
}

func isMutatingVerb(verb string) bool {
	switch verb {
	case "post", "put", "patch", "delete":
		return true
	}
	return false
}

// typeClassifier reads the optional .type node into the record's domain
// classification.
func typeClassifier(script *lambda.Node, verb string, input []InputDescriptor) (map[string]string, error) {
	t := script.Child(".type")
	if t == nil {
		return nil, nil
	}
	return map[string]string{"type": lambda.ToString(t.Value)}, nil
}

// contentClassifier reads .produces and .accept, defaulting both to JSON.
func contentClassifier(script *lambda.Node, verb string, input []InputDescriptor) (map[string]string, error) {
	fields := map[string]string{"produces": jsonContentType}
	if p := script.Child(".produces"); p != nil {
		fields["produces"] = lambda.ToString(p.Value)
	}
	if isMutatingVerb(verb) {
		fields["consumes"] = jsonContentType
		if a := script.Child(".accept"); a != nil {
			fields["consumes"] = lambda.ToString(a.Value)
		}
	}
	return fields, nil
}
