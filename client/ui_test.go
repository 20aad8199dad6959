package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/burntcarrot/slatepad/commons"
	"github.com/burntcarrot/slatepad/merge"
	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(model)
	if !ok {
		t.Fatalf("unexpected model type %T\n", next)
	}
	return got
}

func loggedIn(t *testing.T, flags Flags) model {
	t.Helper()
	m := initialModel(nil, flags)
	return update(t, m, loginMsg{identity: commons.Identity{Name: "ada", ID: "1"}})
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestUpdate_Login(t *testing.T) {
	m := initialModel(nil, Flags{Debounce: time.Millisecond})
	if m.view != viewLogin {
		t.Fatalf("got != want; got = %v, expected = %v\n", m.view, viewLogin)
	}

	failed := update(t, m, loginMsg{err: errors.New("refused")})
	if failed.view != viewLogin || failed.status != "Login failed" {
		t.Errorf("unexpected state after failed login: view = %v, status = %q\n", failed.view, failed.status)
	}

	m = update(t, m, loginMsg{identity: commons.Identity{Name: "ada", ID: "1"}})
	if m.view != viewEditor {
		t.Errorf("got != want; got = %v, expected = %v\n", m.view, viewEditor)
	}
	if !strings.Contains(m.View(), "Username: ada") {
		t.Errorf("expected the editor view, got %q\n", m.View())
	}
}

func TestUpdate_TypingMarksDirty(t *testing.T) {
	m := loggedIn(t, Flags{Debounce: time.Millisecond})

	m = typeText(t, m, "hi")
	if !m.dirty || m.seq != 1 {
		t.Fatalf("expected a pending edit; dirty = %v, seq = %v\n", m.dirty, m.seq)
	}

	// A fetched document must not overwrite pending edits.
	remote := merge.Document{line(merge.TypeParagraph, "remote", merge.Marks{})}
	m = update(t, m, docMsg{doc: remote})
	if got := m.textarea.Value(); got != "hi" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "hi")
	}

	// A stale acknowledgement leaves the edit pending.
	m = update(t, m, sentMsg{seq: 0, resp: commons.Response{Success: true}})
	if !m.dirty {
		t.Errorf("expected the edit to stay pending")
	}

	merged := merge.Document{line(merge.TypeParagraph, "hi there", merge.Marks{})}
	m = update(t, m, sentMsg{seq: 1, resp: commons.Response{Success: true, Data: merged}})
	if m.dirty {
		t.Errorf("expected the edit to be acknowledged")
	}
	if got := m.textarea.Value(); got != "hi there" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "hi there")
	}
}

func TestUpdate_RemoteDocument(t *testing.T) {
	m := loggedIn(t, Flags{})

	doc := merge.Document{
		line(merge.TypeHeadingOne, "Title", merge.Marks{}),
		line(merge.TypeParagraph, "body", merge.Marks{Bold: true}),
	}
	m = update(t, m, docMsg{doc: doc})

	if got := m.textarea.Value(); got != "Title\nbody" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "Title\nbody")
	}
	if !sameDocument(m.base, doc) {
		t.Errorf("expected the base to be the fetched document")
	}

	m = update(t, m, docMsg{err: errors.New("offline")})
	if m.status != "Failed to fetch document" || m.textarea.Value() != "Title\nbody" {
		t.Errorf("unexpected state after failed fetch: status = %q, text = %q\n", m.status, m.textarea.Value())
	}
}

func TestUpdate_Debounce(t *testing.T) {
	m := loggedIn(t, Flags{Debounce: time.Millisecond})

	if _, cmd := m.Update(debounceMsg{seq: 0}); cmd != nil {
		t.Errorf("expected no send without pending edits")
	}

	m = typeText(t, m, "a")
	m = typeText(t, m, "b")

	if _, cmd := m.Update(debounceMsg{seq: 1}); cmd != nil {
		t.Errorf("expected a stale debounce to be ignored")
	}
	if _, cmd := m.Update(debounceMsg{seq: 2}); cmd == nil {
		t.Errorf("expected the latest debounce to send")
	}
}

func TestUpdate_SendRejected(t *testing.T) {
	m := loggedIn(t, Flags{Debounce: time.Millisecond})
	m = typeText(t, m, "x")

	m = update(t, m, sentMsg{seq: m.seq, resp: commons.Response{Success: false}})
	if m.dirty {
		t.Errorf("expected a rejected edit to be dropped")
	}
	if m.status != "Server rejected the document" {
		t.Errorf("got != want; got = %q, expected = %q\n", m.status, "Server rejected the document")
	}
}

func TestUpdate_SendFailedRetries(t *testing.T) {
	m := loggedIn(t, Flags{Debounce: time.Millisecond})
	m = typeText(t, m, "x")

	next, cmd := m.Update(sentMsg{seq: m.seq, err: errors.New("connection refused")})
	if cmd == nil {
		t.Errorf("expected a retry to be scheduled")
	}
	if !next.(model).dirty {
		t.Errorf("expected the edit to stay pending")
	}
}

func TestUpdate_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	m := loggedIn(t, Flags{File: path, Debounce: time.Millisecond})

	m = update(t, m, docMsg{doc: merge.Document{line(merge.TypeHeadingTwo, "Saved", merge.Marks{Italic: true})}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.status != "Saved document to "+path {
		t.Fatalf("got != want; got = %q, expected = %q\n", m.status, "Saved document to "+path)
	}

	saved, err := loadDocument(path)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	if !sameDocument(saved, m.base) {
		t.Errorf("expected the saved document to match the editor")
	}

	fresh := loggedIn(t, Flags{File: path, Debounce: time.Millisecond})
	next, cmd := fresh.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	loaded := next.(model)
	if cmd == nil {
		t.Errorf("expected the loaded document to be sent")
	}
	if got := loaded.textarea.Value(); got != "Saved" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "Saved")
	}
	if !loaded.dirty {
		t.Errorf("expected the loaded document to be pending")
	}
}

func TestUpdate_LoadWithoutFile(t *testing.T) {
	m := loggedIn(t, Flags{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.status != "No file to load!" {
		t.Errorf("got != want; got = %q, expected = %q\n", m.status, "No file to load!")
	}
}

func TestUpdate_Quit(t *testing.T) {
	m := loggedIn(t, Flags{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !next.(model).Quitting {
		t.Errorf("expected the program to quit")
	}
	if !strings.Contains(next.View(), "See you later") {
		t.Errorf("unexpected view %q\n", next.View())
	}
}

func TestRenderPreview(t *testing.T) {
	doc := merge.Document{
		line(merge.TypeHeadingOne, "Title", merge.Marks{}),
		line(merge.TypeParagraph, "plain", merge.Marks{}),
		&merge.Element{Type: merge.TypeImage, URL: "https://x/y.png", Children: []merge.Node{&merge.Text{}}},
		&merge.Element{Children: []merge.Node{
			&merge.Text{Text: "before "},
			&merge.Element{Type: merge.TypeCursor, ID: "3", Children: []merge.Node{&merge.Text{Text: "hidden"}}},
			&merge.Text{Text: "after"},
		}},
	}

	got := renderPreview(doc)
	for _, want := range []string{"Title", "plain", "https://x/y.png", "before after"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in preview %q\n", want, got)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("cursor text leaked into preview %q\n", got)
	}
}

func TestUpdate_PushWhileDirtyAppliedAfterAck(t *testing.T) {
	m := loggedIn(t, Flags{Live: true, Debounce: time.Millisecond})
	m = typeText(t, m, "hi")

	// The drain broadcast overtakes the answer to our own queued send.
	pushed := merge.Document{line(merge.TypeParagraph, "hi from everyone", merge.Marks{})}
	m = update(t, m, docMsg{doc: pushed, live: true})
	if got := m.textarea.Value(); got != "hi" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "hi")
	}

	m = update(t, m, sentMsg{seq: m.seq, resp: commons.Response{Success: true}})
	if got := m.textarea.Value(); got != "hi from everyone" {
		t.Errorf("got != want; got = %q, expected = %q\n", got, "hi from everyone")
	}
	if !sameDocument(m.base, pushed) || m.pendingRemote != nil {
		t.Errorf("expected the held document to become the base")
	}
}

func TestUpdate_LoadSetsBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := merge.Document{
		line(merge.TypeHeadingOne, "Title", merge.Marks{Bold: true}),
		&merge.Element{Type: merge.TypeImage, URL: "https://x/y.png", Children: []merge.Node{&merge.Text{}}},
	}
	if err := saveDocument(path, doc); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	m := loggedIn(t, Flags{File: path, Debounce: time.Millisecond})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	// Rebuilding the snapshot from the editor keeps the image and the marks.
	got := fromText(m.textarea.Value(), m.base)
	if !sameDocument(got, doc) {
		t.Errorf("loaded document lost structure; got = %v\n", toText(got))
	}
}
