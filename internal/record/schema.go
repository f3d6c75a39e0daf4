package record

import (
	"slices"
	"time"
)

// --- Enums ---

// InitiatorKind classifies how a file started loading.
type InitiatorKind string

const (
	InitiatorScriptTag    InitiatorKind = "script-tag"
	InitiatorInlineScript InitiatorKind = "inline-script"
	InitiatorModule       InitiatorKind = "module"
	InitiatorOther        InitiatorKind = "other"
)

// ImportStyle distinguishes static imports from dynamic import() calls.
type ImportStyle string

const (
	StyleStatic  ImportStyle = "static"
	StyleDynamic ImportStyle = "dynamic"
)

// --- Models ---

// Initiator is the tagged variant describing what caused a load.
// Style and FromURL are only meaningful for InitiatorModule.
type Initiator struct {
	Kind    InitiatorKind `json:"kind"`
	Style   ImportStyle   `json:"style,omitempty"`
	FromURL string        `json:"fromUrl,omitempty"`
}

// IsMarkup reports whether the initiator was discovered by inspecting page markup.
func (i Initiator) IsMarkup() bool {
	return i.Kind == InitiatorScriptTag || i.Kind == InitiatorInlineScript
}

// Import is a single import declared in a file's content. Specifier is the
// raw string as written; it is resolved against the importing URL at graph
// build time.
type Import struct {
	Specifier string      `json:"specifier"`
	Style     ImportStyle `json:"style,omitempty"`
	Line      int         `json:"line,omitempty"`
}

// ScriptAttributes are the attributes of the <script> element that loaded a file.
type ScriptAttributes struct {
	Async bool   `json:"async,omitempty"`
	Defer bool   `json:"defer,omitempty"`
	Type  string `json:"type,omitempty"`
	Nonce bool   `json:"nonce,omitempty"`
}

// FileRecord is everything known about one script URL.
type FileRecord struct {
	URL              string            `json:"url"`
	Content          string            `json:"content,omitempty"`
	Status           int               `json:"status,omitempty"`
	Timestamp        time.Time         `json:"timestamp,omitzero"`
	Entrypoint       bool              `json:"entrypoint"`
	Initiator        Initiator         `json:"initiator,omitzero"`
	Imports          []Import          `json:"imports,omitempty"`
	Exports          []string          `json:"exports,omitempty"`
	RedirectedFrom   string            `json:"redirectedFrom,omitempty"`
	RedirectTo       string            `json:"redirectTo,omitempty"`
	IsPending        bool              `json:"isPending,omitempty"`
	Size             int64             `json:"size,omitempty"`
	SideEffects      bool              `json:"sideEffects,omitempty"`
	TLA              bool              `json:"tla,omitempty"`
	BarrelFile       bool              `json:"barrelFile,omitempty"`
	IsModule         bool              `json:"isModule,omitempty"`
	IsInline         bool              `json:"isInline,omitempty"`
	ScriptAttributes *ScriptAttributes `json:"scriptAttributes,omitempty"`
	ImportsFiles     []string          `json:"importsFiles,omitempty"`
	ImportedBy       []string          `json:"importedBy,omitempty"`
}

// Clone returns a deep copy of r. Slice and pointer fields are copied so the
// result can be mutated without affecting the store.
func (r FileRecord) Clone() FileRecord {
	out := r
	out.Imports = slices.Clone(r.Imports)
	out.Exports = slices.Clone(r.Exports)
	out.ImportsFiles = slices.Clone(r.ImportsFiles)
	out.ImportedBy = slices.Clone(r.ImportedBy)
	if r.ScriptAttributes != nil {
		attrs := *r.ScriptAttributes
		out.ScriptAttributes = &attrs
	}
	return out
}

// PartialRecord carries the fields of a merge. Nil fields are left untouched
// on the stored record.
type PartialRecord struct {
	Content          *string           `json:"content,omitempty"`
	Status           *int              `json:"status,omitempty"`
	Timestamp        *time.Time        `json:"timestamp,omitempty"`
	Entrypoint       *bool             `json:"entrypoint,omitempty"`
	Initiator        *Initiator        `json:"initiator,omitempty"`
	Imports          []Import          `json:"imports,omitempty"`
	Exports          []string          `json:"exports,omitempty"`
	RedirectedFrom   *string           `json:"redirectedFrom,omitempty"`
	RedirectTo       *string           `json:"redirectTo,omitempty"`
	IsPending        *bool             `json:"isPending,omitempty"`
	Size             *int64            `json:"size,omitempty"`
	SideEffects      *bool             `json:"sideEffects,omitempty"`
	TLA              *bool             `json:"tla,omitempty"`
	BarrelFile       *bool             `json:"barrelFile,omitempty"`
	IsModule         *bool             `json:"isModule,omitempty"`
	IsInline         *bool             `json:"isInline,omitempty"`
	ScriptAttributes *ScriptAttributes `json:"scriptAttributes,omitempty"`
	ImportsFiles     []string          `json:"importsFiles,omitempty"`
}

// Ptr returns a pointer to v. Handy for building PartialRecord literals.
func Ptr[T any](v T) *T {
	return &v
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Records map[string]FileRecord `json:"records"`
	// Epoch increments on every Clear; Version on every mutation.
	Epoch   uint64 `json:"epoch"`
	Version uint64 `json:"version"`
}
