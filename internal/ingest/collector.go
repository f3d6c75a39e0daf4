// Package ingest turns page observations (script tags found in markup and
// finished network requests) into record merges on an engine.
package ingest

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/record"
)

// ScriptTag is one <script> element found in the page.
type ScriptTag struct {
	Index           int    `json:"index"`
	Src             string `json:"src,omitempty"`
	Type            string `json:"type,omitempty"`
	IsModule        bool   `json:"isModule,omitempty"`
	InlineContent   string `json:"inlineContent,omitempty"`
	Async           bool   `json:"async,omitempty"`
	Defer           bool   `json:"defer,omitempty"`
	Nonce           string `json:"nonce,omitempty"`
	DocumentBaseURI string `json:"documentBaseURI"`
}

// Header is a single HTTP response header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CallFrame is one frame of the JavaScript stack that issued a request.
type CallFrame struct {
	URL string `json:"url"`
}

// RequestInitiator describes what issued a request. URL is set for requests
// issued by the module loader for a static import; dynamic imports only
// carry a stack.
type RequestInitiator struct {
	URL   string      `json:"url,omitempty"`
	Stack []CallFrame `json:"stack,omitempty"`
}

// NetworkEvent is a finished network request.
type NetworkEvent struct {
	URL          string            `json:"url"`
	Status       int               `json:"status"`
	Headers      []Header          `json:"headers,omitempty"`
	ResourceType string            `json:"resourceType,omitempty"`
	Initiator    *RequestInitiator `json:"initiator,omitempty"`
	Content      string            `json:"content,omitempty"`
	Size         int64             `json:"size,omitempty"`
	Flags        *Flags            `json:"flags,omitempty"`
}

// Header returns the first header named name, case-insensitively.
func (ev NetworkEvent) Header(name string) string {
	for _, h := range ev.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Flags are the results of static analyses that are opaque to this package.
type Flags struct {
	SideEffects bool `json:"sideEffects"`
	TLA         bool `json:"tla"`
	BarrelFile  bool `json:"barrelFile"`
}

// Classifier computes Flags for a script.
type Classifier interface {
	Classify(url string, content []byte) Flags
}

// NopClassifier reports every flag as false.
type NopClassifier struct{}

// Classify returns zero Flags.
func (NopClassifier) Classify(string, []byte) Flags { return Flags{} }

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithParser sets the import parser. The default is NopParser.
func WithParser(p Parser) CollectorOption {
	return func(c *Collector) {
		c.parser = p
	}
}

// WithClassifier sets the flag classifier. The default is NopClassifier.
func WithClassifier(cl Classifier) CollectorOption {
	return func(c *Collector) {
		c.classifier = cl
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

// Collector feeds an Engine from page and network observations.
type Collector struct {
	engine     *engine.Engine
	parser     Parser
	classifier Classifier
	now        func() time.Time
}

// NewCollector creates a Collector writing into e.
func NewCollector(e *engine.Engine, opts ...CollectorOption) *Collector {
	c := &Collector{
		engine:     e,
		parser:     NopParser{},
		classifier: NopClassifier{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DiscoverScripts records the scripts found in the page markup. External
// scripts become entrypoints (pending until their response arrives, unless
// content is already known); non-empty inline scripts become entrypoints
// with a synthetic URL relative to the document base. It returns the number
// of records written.
func (c *Collector) DiscoverScripts(ctx context.Context, tags []ScriptTag) int {
	store := c.engine.Store()
	written := 0

	for _, tag := range tags {
		switch {
		case tag.Src != "":
			store.MarkPendingScript(tag.Src)
			p := record.PartialRecord{
				Entrypoint: record.Ptr(true),
				Initiator:  &record.Initiator{Kind: record.InitiatorScriptTag},
				IsModule:   record.Ptr(tag.IsModule),
				ScriptAttributes: &record.ScriptAttributes{
					Async: tag.Async,
					Defer: tag.Defer,
					Type:  scriptType(tag.Type),
				},
			}
			if existing, ok := store.Get(tag.Src); ok && existing.Content != "" {
				c.analyze(ctx, tag.Src, existing.Content, nil, &p)
			} else {
				p.IsPending = record.Ptr(true)
				p.Timestamp = record.Ptr(c.now())
			}
			c.engine.MergeRecord(tag.Src, p)
			written++

		case strings.TrimSpace(tag.InlineContent) != "":
			inlineURL, ok := inlineScriptURL(tag.DocumentBaseURI, tag.Index)
			if !ok {
				log.Printf("ingest: skipping inline script %d: bad base URI %q", tag.Index, tag.DocumentBaseURI)
				continue
			}
			p := record.PartialRecord{
				Entrypoint: record.Ptr(true),
				Content:    record.Ptr(tag.InlineContent),
				Initiator:  &record.Initiator{Kind: record.InitiatorInlineScript},
				IsModule:   record.Ptr(tag.IsModule),
				IsInline:   record.Ptr(true),
				ScriptAttributes: &record.ScriptAttributes{
					Type:  scriptType(tag.Type),
					Nonce: tag.Nonce != "",
				},
				Timestamp: record.Ptr(c.now()),
			}
			c.analyze(ctx, inlineURL, tag.InlineContent, nil, &p)
			c.engine.MergeRecord(inlineURL, p)
			written++
		}
	}
	return written
}

// RequestFinished records a finished network request. Redirect responses
// update the redirect table; script responses become records. It reports
// whether a record was written.
func (c *Collector) RequestFinished(ctx context.Context, ev NetworkEvent) bool {
	store := c.engine.Store()
	contentType := ev.Header("Content-Type")

	if ev.Status >= 300 && ev.Status < 400 {
		loc := ev.Header("Location")
		if loc != "" && (record.IsJavaScriptFile(ev.URL, contentType) || record.IsJavaScriptFile(loc, contentType)) {
			if to, ok := resolveAgainst(ev.URL, loc); ok {
				store.NoteRedirect(ev.URL, to)
			}
		}
	}

	if !record.IsJavaScriptFile(ev.URL, contentType) || ev.ResourceType == "fetch" {
		return false
	}

	existing, _ := store.Get(ev.URL)
	redirectedFrom, redirected := store.RedirectSource(ev.URL)
	isScriptTag := store.TakePendingScript(ev.URL)

	p := record.PartialRecord{
		Content:   record.Ptr(ev.Content),
		Size:      record.Ptr(ev.Size),
		Status:    record.Ptr(ev.Status),
		Timestamp: record.Ptr(c.now()),
		IsPending: record.Ptr(false),
	}
	if isScriptTag {
		p.Entrypoint = record.Ptr(true)
	}
	if redirected {
		p.RedirectedFrom = record.Ptr(redirectedFrom)
	}

	var initiatorURL string
	if !existing.Initiator.IsMarkup() {
		var ini record.Initiator
		ini, initiatorURL = initiatorFrom(ev.Initiator)
		p.Initiator = &ini
	}

	content := ev.Content
	if content == "" {
		content = existing.Content
	}
	c.analyze(ctx, ev.URL, content, ev.Flags, &p)

	c.engine.MergeRecord(ev.URL, p)

	if redirected {
		if _, ok := store.Get(redirectedFrom); ok {
			c.engine.MergeRecord(redirectedFrom, record.PartialRecord{RedirectTo: record.Ptr(ev.URL)})
		}
	}
	if initiatorURL != "" && initiatorURL != ev.URL {
		store.Link(initiatorURL, ev.URL)
	}
	return true
}

// Navigated drops everything known about the previous page.
func (c *Collector) Navigated() {
	c.engine.ClearAll()
}

// analyze fills imports, exports and flags on p from content. Parse failures
// are logged and leave the record without imports.
func (c *Collector) analyze(ctx context.Context, rawURL, content string, flags *Flags, p *record.PartialRecord) {
	src := []byte(content)

	p.Imports = []record.Import{}
	p.Exports = []string{}
	if content != "" {
		res, err := c.parser.Parse(ctx, rawURL, src)
		if err != nil {
			log.Printf("ingest: parse %s: %v", rawURL, err)
		} else if res != nil {
			if res.Imports != nil {
				p.Imports = res.Imports
			}
			if res.Exports != nil {
				p.Exports = res.Exports
			}
		}
	}

	f := c.classifier.Classify(rawURL, src)
	if flags != nil {
		f = *flags
	}
	p.SideEffects = record.Ptr(f.SideEffects)
	p.TLA = record.Ptr(f.TLA)
	p.BarrelFile = record.Ptr(f.BarrelFile)
}

// initiatorFrom classifies a request initiator. A known initiator URL means
// the module loader fetched the file for a static import; otherwise the
// first stack frame points at the code that called import().
func initiatorFrom(ri *RequestInitiator) (record.Initiator, string) {
	if ri == nil {
		return record.Initiator{Kind: record.InitiatorOther}, ""
	}
	if ri.URL != "" {
		return record.Initiator{Kind: record.InitiatorModule, Style: record.StyleStatic, FromURL: ri.URL}, ri.URL
	}
	if len(ri.Stack) > 0 && ri.Stack[0].URL != "" {
		from := ri.Stack[0].URL
		return record.Initiator{Kind: record.InitiatorModule, Style: record.StyleDynamic, FromURL: from}, from
	}
	return record.Initiator{Kind: record.InitiatorOther}, ""
}

func inlineScriptURL(baseURI string, index int) (string, bool) {
	return resolveAgainst(baseURI, "inline-script-"+strconv.Itoa(index)+".js")
}

func resolveAgainst(base, ref string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

func scriptType(t string) string {
	if t == "" {
		return "text/javascript"
	}
	return t
}
