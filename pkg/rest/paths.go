package rest

import (
	"net/url"
	"strings"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Session endpoints.
const (
	PathHydrate = "/hydrate"
	PathLogin   = "/login"
	PathLogout  = "/logout"
)

// SearchParam is the query parameter carrying a search.
const SearchParam = "search_text"

// collectionPath returns the collection path for kind.
func (c *Client) collectionPath(kind *record.Kind) string {
	if c.opts.CollectionAPIPath != nil {
		if p := c.opts.CollectionAPIPath(kind.Name); p != "" {
			return p
		}
	}
	return kind.BasePath()
}

// path returns the request path for a verb. Records are addressed by their
// identity; a relationship record by its two halves.
func (c *Client) path(kind *record.Kind, verb types.Verb, r *record.Record, query string) string {
	if c.opts.APIPath != nil {
		if p := c.opts.APIPath(verb, r, query); p != "" {
			return p
		}
	}
	switch verb {
	case types.VerbHydrate:
		return PathHydrate
	case types.VerbLogin:
		return PathLogin
	case types.VerbLogout:
		return PathLogout
	case types.VerbSearch:
		return c.collectionPath(kind) + "?" + SearchParam + "=" + url.QueryEscape(query)
	case types.VerbRead, types.VerbSaveUpdate, types.VerbDelete:
		return c.collectionPath(kind) + "/" + recordPath(r)
	default:
		return c.collectionPath(kind)
	}
}

func recordPath(r *record.Record) string {
	if r.Kind().Composite() {
		return url.PathEscape(r.LeftID()) + "/" + url.PathEscape(r.RightID())
	}
	return url.PathEscape(r.Identity())
}

func (c *Client) url(kind *record.Kind, verb types.Verb, r *record.Record, query string) string {
	return strings.TrimRight(c.opts.FetchURL(), "/") + c.path(kind, verb, r, query)
}
