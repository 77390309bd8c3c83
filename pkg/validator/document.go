// Package validator provides struct validation utilities with custom validators.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DocumentValidator validates free-form JSON documents before they are
// persisted, such as settings section updates and onboarding profile data.
// Limits guard the JSONB columns against oversized or deeply nested payloads.
type DocumentValidator struct {
	maxKeys         int
	maxKeyLength    int
	maxStringLength int
	maxDepth        int
}

// NewDocumentValidator creates a document validator with default limits.
func NewDocumentValidator() *DocumentValidator {
	return &DocumentValidator{
		maxKeys:         100,
		maxKeyLength:    100,
		maxStringLength: 10000,
		maxDepth:        5,
	}
}

// DocumentError represents a document validation error.
type DocumentError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// DocumentErrors is a collection of document validation errors.
type DocumentErrors []DocumentError

// Error implements the error interface.
func (e DocumentErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Path, err.Message))
	}
	return sb.String()
}

// Validate checks a decoded JSON object against the configured limits.
// Errors accumulate across the whole document.
func (v *DocumentValidator) Validate(doc map[string]any) error {
	var errs DocumentErrors
	v.validateObject(doc, "", 1, &errs)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *DocumentValidator) validateObject(obj map[string]any, path string, depth int, errs *DocumentErrors) {
	if depth > v.maxDepth {
		*errs = append(*errs, DocumentError{
			Path:    pathOrRoot(path),
			Message: fmt.Sprintf("exceeds maximum nesting depth of %d", v.maxDepth),
		})
		return
	}

	if len(obj) > v.maxKeys {
		*errs = append(*errs, DocumentError{
			Path:    pathOrRoot(path),
			Message: fmt.Sprintf("has %d keys, maximum is %d", len(obj), v.maxKeys),
		})
	}

	for key, value := range obj {
		keyPath := joinPath(path, key)

		if key == "" {
			*errs = append(*errs, DocumentError{Path: pathOrRoot(path), Message: "contains an empty key"})
			continue
		}
		if utf8.RuneCountInString(key) > v.maxKeyLength {
			*errs = append(*errs, DocumentError{
				Path:    keyPath,
				Message: fmt.Sprintf("key exceeds maximum length of %d", v.maxKeyLength),
			})
			continue
		}

		v.validateValue(value, keyPath, depth, errs)
	}
}

func (v *DocumentValidator) validateValue(value any, path string, depth int, errs *DocumentErrors) {
	switch val := value.(type) {
	case string:
		if utf8.RuneCountInString(val) > v.maxStringLength {
			*errs = append(*errs, DocumentError{
				Path:    path,
				Message: fmt.Sprintf("string exceeds maximum length of %d", v.maxStringLength),
			})
		}
	case map[string]any:
		v.validateObject(val, path, depth+1, errs)
	case []any:
		if len(val) > v.maxKeys {
			*errs = append(*errs, DocumentError{
				Path:    path,
				Message: fmt.Sprintf("array has %d elements, maximum is %d", len(val), v.maxKeys),
			})
			return
		}
		for i, elem := range val {
			v.validateValue(elem, fmt.Sprintf("%s[%d]", path, i), depth, errs)
		}
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
