// Package types defines the verbs, lifecycle statuses, documents, configuration,
// and standard errors shared by the rim record, service, and rest packages.
package types
