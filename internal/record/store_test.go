package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeInitiator_Precedence(t *testing.T) {
	scriptTag := Initiator{Kind: InitiatorScriptTag}
	inline := Initiator{Kind: InitiatorInlineScript}
	static := Initiator{Kind: InitiatorModule, Style: StyleStatic, FromURL: "https://a.test/a.js"}
	static2 := Initiator{Kind: InitiatorModule, Style: StyleStatic, FromURL: "https://a.test/b.js"}
	dynamic := Initiator{Kind: InitiatorModule, Style: StyleDynamic, FromURL: "https://a.test/c.js"}
	other := Initiator{Kind: InitiatorOther}

	tests := []struct {
		name     string
		existing Initiator
		incoming *Initiator
		want     Initiator
	}{
		{"nil keeps existing", static, nil, static},
		{"anything beats empty", Initiator{}, &other, other},
		{"static overrides dynamic", dynamic, &static, static},
		{"dynamic does not override static", static, &dynamic, static},
		{"later static replaces static", static, &static2, static2},
		{"module does not override script tag", scriptTag, &static, scriptTag},
		{"script tag overrides module", dynamic, &scriptTag, scriptTag},
		{"inline overrides other", other, &inline, inline},
		{"other does not override module", dynamic, &other, dynamic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeInitiator(tt.existing, tt.incoming))
		})
	}
}

func TestStore_MergeCreatesRecord(t *testing.T) {
	s := NewStore()

	got := s.Merge("https://a.test/main.js", PartialRecord{IsPending: Ptr(true)})

	assert.Equal(t, "https://a.test/main.js", got.URL)
	assert.True(t, got.IsPending)
	assert.Equal(t, 1, s.Len())
}

func TestStore_MergePreservesKnownFields(t *testing.T) {
	s := NewStore()
	url := "https://a.test/main.js"

	s.Merge(url, PartialRecord{
		Entrypoint: Ptr(true),
		Initiator:  &Initiator{Kind: InitiatorScriptTag},
		IsPending:  Ptr(true),
		ScriptAttributes: &ScriptAttributes{
			Type:  "module",
			Defer: true,
		},
	})

	s.Merge(url, PartialRecord{
		Content:   Ptr("import './dep.js'"),
		Initiator: &Initiator{Kind: InitiatorOther},
		IsPending: Ptr(false),
		Size:      Ptr(int64(42)),
		Imports:   []Import{{Specifier: "./dep.js", Style: StyleStatic}},
	})

	got, ok := s.Get(url)
	require.True(t, ok)
	assert.True(t, got.Entrypoint, "entrypoint flag must survive a later merge")
	assert.Equal(t, InitiatorScriptTag, got.Initiator.Kind, "markup initiator must survive")
	assert.False(t, got.IsPending)
	assert.Equal(t, int64(42), got.Size)
	assert.Equal(t, "import './dep.js'", got.Content)
	require.NotNil(t, got.ScriptAttributes)
	assert.Equal(t, "module", got.ScriptAttributes.Type)
	require.Len(t, got.Imports, 1)
}

func TestStore_EmptyContentDoesNotErase(t *testing.T) {
	s := NewStore()
	url := "https://a.test/x.js"

	s.Merge(url, PartialRecord{Content: Ptr("x()")})
	s.Merge(url, PartialRecord{Content: Ptr("")})

	got, _ := s.Get(url)
	assert.Equal(t, "x()", got.Content)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := NewStore()
	url := "https://a.test/x.js"
	s.Merge(url, PartialRecord{Imports: []Import{{Specifier: "./y.js"}}})

	snap := s.Snapshot()
	r := snap.Records[url]
	r.Imports[0].Specifier = "mutated"
	snap.Records["https://a.test/new.js"] = FileRecord{}

	got, _ := s.Get(url)
	assert.Equal(t, "./y.js", got.Imports[0].Specifier)
	assert.Equal(t, 1, s.Len())
}

func TestStore_LinkMaintainsBacklinks(t *testing.T) {
	s := NewStore()
	s.Merge("https://a.test/a.js", PartialRecord{})
	s.Merge("https://a.test/b.js", PartialRecord{})

	s.Link("https://a.test/a.js", "https://a.test/b.js")
	s.Link("https://a.test/a.js", "https://a.test/b.js")
	s.Link("https://a.test/a.js", "https://a.test/a.js")

	a, _ := s.Get("https://a.test/a.js")
	b, _ := s.Get("https://a.test/b.js")
	assert.Equal(t, []string{"https://a.test/b.js"}, a.ImportsFiles)
	assert.Equal(t, []string{"https://a.test/a.js"}, b.ImportedBy)
	assert.Empty(t, a.ImportedBy)
}

func TestStore_MergeImportsFilesAppends(t *testing.T) {
	s := NewStore()
	url := "https://a.test/a.js"

	s.Merge(url, PartialRecord{ImportsFiles: []string{"https://a.test/b.js"}})
	s.Merge(url, PartialRecord{ImportsFiles: []string{"https://a.test/c.js", "https://a.test/b.js"}})

	got, _ := s.Get(url)
	assert.Equal(t, []string{"https://a.test/b.js", "https://a.test/c.js"}, got.ImportsFiles)
}

func TestStore_RedirectsAndPendingScripts(t *testing.T) {
	s := NewStore()

	s.NoteRedirect("https://a.test/old.js", "https://a.test/new.js")
	from, ok := s.RedirectSource("https://a.test/new.js")
	require.True(t, ok)
	assert.Equal(t, "https://a.test/old.js", from)

	_, ok = s.RedirectSource("https://a.test/old.js")
	assert.False(t, ok)

	s.MarkPendingScript("https://a.test/main.js")
	assert.True(t, s.TakePendingScript("https://a.test/main.js"))
	assert.False(t, s.TakePendingScript("https://a.test/main.js"), "pending check is consumed once")
}

func TestStore_ClearDropsEverything(t *testing.T) {
	s := NewStore()
	s.Merge("https://a.test/a.js", PartialRecord{})
	s.Link("https://a.test/a.js", "https://a.test/b.js")
	s.NoteRedirect("https://a.test/a.js", "https://a.test/c.js")
	s.MarkPendingScript("https://a.test/d.js")
	epoch := s.Epoch()

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, epoch+1, s.Epoch())
	_, ok := s.RedirectSource("https://a.test/c.js")
	assert.False(t, ok)
	assert.False(t, s.TakePendingScript("https://a.test/d.js"))

	s.Merge("https://a.test/a.js", PartialRecord{})
	a, _ := s.Get("https://a.test/a.js")
	assert.Empty(t, a.ImportsFiles, "backlinks must not outlive a clear")
}

func TestStore_OnChangeHook(t *testing.T) {
	var changes []Change
	s := NewStore(WithOnChange(func(c Change) {
		changes = append(changes, c)
	}))

	s.Merge("https://a.test/a.js", PartialRecord{})
	s.Link("https://a.test/a.js", "https://a.test/b.js")
	s.Link("https://a.test/a.js", "https://a.test/b.js") // no-op, no change
	s.Clear()

	require.Len(t, changes, 3)
	assert.Equal(t, ChangeMerged, changes[0].Kind)
	assert.Equal(t, "https://a.test/a.js", changes[0].URL)
	assert.Equal(t, ChangeMerged, changes[1].Kind)
	assert.Equal(t, ChangeCleared, changes[2].Kind)
	assert.Equal(t, uint64(1), changes[2].Epoch)
	assert.Less(t, changes[0].Version, changes[2].Version)
}
