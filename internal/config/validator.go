// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Field tags cover the simple rules (`required`, `oneof`, `url`).  The one
// cross-field rule, "the chosen backend has its connection settings", is a
// struct-level validation on `Storage` because the backend name and the
// settings live in sibling structs.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(storageRules, Storage{})
	return val
}

// storageRules reports the connection field the chosen backend is missing.
func storageRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(Storage)
	switch s.Backend {
	case BackendSQL:
		if s.SQL.DSN == "" {
			sl.ReportError(s.SQL.DSN, "SQL.DSN", "DSN", "required_for_backend", s.Backend)
		}
	case BackendDataAPI:
		if s.DataAPI.URL == "" {
			sl.ReportError(s.DataAPI.URL, "DataAPI.URL", "URL", "required_for_backend", s.Backend)
		}
		if s.DataAPI.APIKey == "" {
			sl.ReportError(s.DataAPI.APIKey, "DataAPI.APIKey", "APIKey", "required_for_backend", s.Backend)
		}
	case BackendMongo:
		if s.Mongo.URI == "" {
			sl.ReportError(s.Mongo.URI, "Mongo.URI", "URI", "required_for_backend", s.Backend)
		}
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
