package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load walks rulesDir recursively, parsing every *.yaml/*.yml/*.json
// file it finds. The rule key for every document in a file is derived
// from the file's base name (case-insensitive), per the
// <package>.<service>.<method>.(yaml|yml|json) naming convention.
//
// Load never fails outright because one file is malformed: that file's
// error is recorded in the returned Store's LoadErrors, and the caller
// is responsible for the "all-or-nothing" policy (reject the whole
// reload if LoadErrors is non-empty, keep serving the previous Store).
func Load(rulesDir string) (*Store, error) {
	var files []string
	err := filepath.Walk(rulesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" || ext == ".json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{byKey: map[string][]Candidate{}}, nil
		}
		return nil, fmt.Errorf("rules: walking %s: %w", rulesDir, err)
	}
	sort.Strings(files)

	s := &Store{byKey: make(map[string][]Candidate)}
	loadOrder := 0
	for _, f := range files {
		ruleKey := ruleKeyFromFilename(f)
		data, rerr := os.ReadFile(f)
		if rerr != nil {
			s.LoadErrors = append(s.LoadErrors, LoadError{File: f, Message: rerr.Error()})
			continue
		}
		docs, perr := parseDocs(data)
		if perr != nil {
			s.LoadErrors = append(s.LoadErrors, LoadError{File: f, Message: perr.Error()})
			continue
		}
		for _, doc := range docs {
			if verr := validateDoc(doc); verr != nil {
				s.LoadErrors = append(s.LoadErrors, LoadError{File: f, Message: verr.Error()})
				continue
			}
			for _, resp := range doc.Responses {
				cand := Candidate{
					RuleKey:    ruleKey,
					SourceFile: f,
					LoadOrder:  loadOrder,
					Metadata:   mergedMetadata(doc.Match, resp.When),
					Request:    mergedRequest(doc.Match, resp.When),
					Option:     resp,
				}
				loadOrder++
				s.byKey[ruleKey] = append(s.byKey[ruleKey], cand)
			}
		}
	}
	return s, nil
}

func ruleKeyFromFilename(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return strings.ToLower(stem)
}

// parseDocs accepts either a single document or a YAML/JSON array of
// documents; JSON is a YAML subset so one decoder path handles both.
func parseDocs(data []byte) ([]RuleDoc, error) {
	var asArray []RuleDoc
	if err := yaml.Unmarshal(data, &asArray); err == nil && looksLikeArray(data) {
		return asArray, nil
	}
	var single RuleDoc
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []RuleDoc{single}, nil
}

func looksLikeArray(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "[")
}

func validateDoc(doc RuleDoc) error {
	for i, resp := range doc.Responses {
		if resp.IsStreaming() && resp.Body != nil {
			return fmt.Errorf("response %d: stream_items and body are mutually exclusive", i)
		}
	}
	return nil
}

// mergedMetadata combines a document's match.metadata with a response's
// own when.metadata; the response's keys win on conflict.
func mergedMetadata(match *When, when *When) map[string]string {
	out := map[string]string{}
	if match != nil {
		for k, v := range match.Metadata {
			out[strings.ToLower(k)] = v
		}
	}
	if when != nil {
		for k, v := range when.Metadata {
			out[strings.ToLower(k)] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergedRequest combines a document's match.request with a response's
// own when.request; the response's keys win on conflict.
func mergedRequest(match *When, when *When) map[string]any {
	out := map[string]any{}
	if match != nil {
		for k, v := range match.Request {
			out[k] = v
		}
	}
	if when != nil {
		for k, v := range when.Request {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
