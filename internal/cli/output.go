package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// printRecords writes records as a JSON array in JSON mode, otherwise one
// "identity<TAB>document" line per record.
func printRecords(w io.Writer, jsonMode bool, rs []*record.Record) error {
	docs := make([]types.Document, 0, len(rs))
	for _, r := range rs {
		docs = append(docs, r.Data())
	}
	if jsonMode {
		return printJSON(w, docs)
	}
	for i, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", rs[i], err)
		}
		fmt.Fprintf(w, "%s\t%s\n", rs[i].Identity(), line)
	}
	return nil
}

// printDocuments writes raw documents, such as search results.
func printDocuments(w io.Writer, jsonMode bool, docs []types.Document) error {
	if jsonMode {
		return printJSON(w, docs)
	}
	for _, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(line))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// parseDocument decodes a JSON object argument.
func parseDocument(arg string) (types.Document, error) {
	var doc types.Document
	if err := json.Unmarshal([]byte(arg), &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON document: %v", errUsage, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document must be a JSON object", errUsage)
	}
	return doc, nil
}

// recordFor returns the stored record with identity id, or a bare record
// carrying only its identity fields. Composite identities are written
// "left/right".
func recordFor(svc *service.Service, id string) (*record.Record, error) {
	if r, ok := svc.GetByID(id); ok {
		return r, nil
	}
	kind := svc.Kind()
	keys := kind.IdentityStrategy().Keys()
	doc := types.Document{}
	switch len(keys) {
	case 1:
		doc[keys[0]] = id
	case 2:
		left, right, ok := strings.Cut(id, "/")
		if !ok || left == "" || right == "" {
			return nil, fmt.Errorf("%w: %s is keyed on %s/%s", errUsage, kind.Name, keys[0], keys[1])
		}
		doc[keys[0]], doc[keys[1]] = left, right
	default:
		return nil, fmt.Errorf("%w: %s records have no identity", errUsage, kind.Name)
	}
	return kind.New(doc), nil
}
