package record

// initiatorRank orders initiators by how authoritative they are. Markup
// inspection is ground truth; a static import beats a dynamic one; "other" is
// the fallback used when nothing better is known.
func initiatorRank(i Initiator) int {
	switch {
	case i.IsMarkup():
		return 3
	case i.Kind == InitiatorModule && i.Style == StyleStatic:
		return 2
	case i.Kind == InitiatorModule:
		return 1
	case i.Kind == InitiatorOther:
		return 0
	default:
		return -1
	}
}

// MergeInitiator returns the initiator that should be stored when incoming is
// merged over existing. The incoming value wins when its rank is at least the
// existing rank, so a later static import replaces an earlier dynamic one but
// never a script-tag, and a generic "other" never replaces anything known.
func MergeInitiator(existing Initiator, incoming *Initiator) Initiator {
	if incoming == nil {
		return existing
	}
	if initiatorRank(*incoming) >= initiatorRank(existing) {
		return *incoming
	}
	return existing
}

// Apply merges p over r field by field and returns the result. r is not
// modified; slices carried by p are copied.
func (p PartialRecord) Apply(r FileRecord) FileRecord {
	out := r.Clone()

	if p.Content != nil && *p.Content != "" {
		out.Content = *p.Content
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Timestamp != nil {
		out.Timestamp = *p.Timestamp
	}
	if p.Entrypoint != nil {
		out.Entrypoint = *p.Entrypoint
	}
	out.Initiator = MergeInitiator(out.Initiator, p.Initiator)
	if p.Imports != nil {
		out.Imports = append([]Import(nil), p.Imports...)
	}
	if p.Exports != nil {
		out.Exports = append([]string(nil), p.Exports...)
	}
	if p.RedirectedFrom != nil {
		out.RedirectedFrom = *p.RedirectedFrom
	}
	if p.RedirectTo != nil {
		out.RedirectTo = *p.RedirectTo
	}
	if p.IsPending != nil {
		out.IsPending = *p.IsPending
	}
	if p.Size != nil {
		out.Size = *p.Size
	}
	if p.SideEffects != nil {
		out.SideEffects = *p.SideEffects
	}
	if p.TLA != nil {
		out.TLA = *p.TLA
	}
	if p.BarrelFile != nil {
		out.BarrelFile = *p.BarrelFile
	}
	if p.IsModule != nil {
		out.IsModule = *p.IsModule
	}
	if p.IsInline != nil {
		out.IsInline = *p.IsInline
	}
	if p.ScriptAttributes != nil {
		attrs := *p.ScriptAttributes
		out.ScriptAttributes = &attrs
	}
	return out
}
