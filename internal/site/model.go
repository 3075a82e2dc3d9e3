// internal/site/model.go
//
// Customer-site record model.
//
// Context
// -------
// A customer site is one upstream video API that an operator adds to the
// front end's site directory.  The server owns `Record`; clients mirror the
// subset in `Entry` and never see timestamps.
//
// Notes
// -----
//   - `ID` is caller-supplied and immutable once created.
//   - Timestamps are ISO-8601 strings with millisecond precision so every
//     backend stores and returns the same text.
//   - Oxford commas, two spaces after periods.
package site

import "time"

// TimeLayout is the text form of CreatedAt and UpdatedAt.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Record mirrors one stored customer site.
type Record struct {
	ID        string `json:"id"                  validate:"required"`
	API       string `json:"api"                 validate:"required,startswith=http://|startswith=https://"`
	Name      string `json:"name"                validate:"required"`
	Adult     bool   `json:"adult"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Fields is the mutable part of a Record, written by UpdateFields.
type Fields struct {
	API       string `json:"api"   validate:"required,startswith=http://|startswith=https://"`
	Name      string `json:"name"  validate:"required"`
	Adult     bool   `json:"adult"`
	UpdatedAt string `json:"updatedAt"`
}

// Entry is the client-side view of a site: no id, no timestamps.
type Entry struct {
	API   string `json:"api"`
	Name  string `json:"name"`
	Adult bool   `json:"adult"`
}

// Stamp formats t in TimeLayout (UTC).
func Stamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Entry drops the id and timestamps.
func (r Record) Entry() Entry {
	return Entry{API: r.API, Name: r.Name, Adult: r.Adult}
}

// Apply overwrites the mutable fields of r with f.  ID and CreatedAt stay.
func (r Record) Apply(f Fields) Record {
	r.API = f.API
	r.Name = f.Name
	r.Adult = f.Adult
	r.UpdatedAt = f.UpdatedAt
	return r
}
