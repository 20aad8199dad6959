package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/burntcarrot/slatepad/commons"
	"github.com/burntcarrot/slatepad/merge"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const requestTimeout = 10 * time.Second

type view int

const (
	viewLogin view = iota
	viewEditor
)

type (
	errMsg error

	loginMsg struct {
		identity commons.Identity
		err      error
	}

	// docMsg carries a canonical document fetched or pushed from the server.
	docMsg struct {
		doc  merge.Document
		err  error
		live bool
	}

	// liveMsg reports the outcome of opening the WebSocket feed.
	liveMsg struct {
		docs <-chan merge.Document
		err  error
	}

	pollMsg struct{}

	debounceMsg struct {
		seq int
	}

	sentMsg struct {
		seq  int
		resp commons.Response
		err  error
	}
)

type model struct {
	api   *apiClient
	flags Flags

	view      view
	textInput textinput.Model
	textarea  textarea.Model
	identity  commons.Identity

	// base is the last canonical document seen. Edits are turned into snapshots against it.
	base merge.Document

	// dirty is set while local edits have not been acknowledged by the server.
	// Fetched documents are ignored while it is set, so they cannot overwrite typing.
	dirty bool
	seq   int

	// pendingRemote is the latest document that arrived while dirty was set.
	// It is applied once the pending edit has been answered.
	pendingRemote merge.Document

	live     <-chan merge.Document
	status   string
	err      error
	Quitting bool
}

func initialModel(api *apiClient, flags Flags) model {
	ti := textinput.New()
	ti.Placeholder = "Username"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 20

	ta := textarea.New()
	ta.Placeholder = "Write some text here..."
	ta.CharLimit = 0

	return model{
		api:       api,
		flags:     flags,
		textInput: ti,
		textarea:  ta,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.view == viewLogin {
				m.status = "Logging in..."
				return m, m.login(m.textInput.Value())
			}
		case tea.KeyCtrlS:
			if m.view == viewEditor {
				return m.save(), nil
			}
		case tea.KeyCtrlL:
			if m.view == viewEditor {
				return m.load()
			}
		}

	case tea.WindowSizeMsg:
		m.textarea.SetWidth(msg.Width)
		return m, nil

	case loginMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Login failed"
			return m, nil
		}
		m.identity = msg.identity
		m.view = viewEditor
		m.status = fmt.Sprintf("Logged in as %s", m.identity.Name)
		m.textInput.Blur()
		m.textarea.Focus()
		return m, tea.Batch(m.fetch(), m.startUpdates())

	case pollMsg:
		if m.dirty {
			return m, m.poll()
		}
		return m, tea.Batch(m.fetch(), m.poll())

	case liveMsg:
		if msg.err != nil {
			logger.Warnf("live updates unavailable, polling instead: %v", msg.err)
			m.status = "Live updates unavailable, polling"
			m.live = nil
			return m, m.poll()
		}
		m.live = msg.docs
		return m, waitForDoc(m.live)

	case docMsg:
		var cmd tea.Cmd
		if msg.live {
			cmd = waitForDoc(m.live)
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Failed to fetch document"
			return m, cmd
		}
		m.applyRemote(msg.doc)
		return m, cmd

	case debounceMsg:
		if msg.seq != m.seq || !m.dirty {
			return m, nil
		}
		return m, m.send(fromText(m.textarea.Value(), m.base), m.seq)

	case sentMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Failed to send changes, retrying"
			logger.Errorf("failed to send document: %v", msg.err)
			if msg.seq == m.seq {
				return m, debounce(m.flags.Debounce, m.seq)
			}
			return m, nil
		}
		if msg.seq == m.seq {
			m.dirty = false
		}
		switch {
		case !msg.resp.Success:
			m.status = "Server rejected the document"
		case msg.resp.Data != nil:
			m.status = "Saved"
			m.applyRemote(msg.resp.Data)
		default:
			m.status = "Queued for merge"
		}
		if !m.dirty && m.pendingRemote != nil {
			m.applyRemote(m.pendingRemote)
		}
		return m, nil

	case errMsg:
		m.err = msg
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == viewLogin {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	before := m.textarea.Value()
	m.textarea, cmd = m.textarea.Update(msg)
	if m.textarea.Value() != before {
		m.dirty = true
		m.seq++
		cmd = tea.Batch(cmd, debounce(m.flags.Debounce, m.seq))
	}
	return m, cmd
}

// applyRemote replaces the editor's content with doc. While local edits are
// pending, doc is held back in pendingRemote instead.
func (m *model) applyRemote(doc merge.Document) {
	if m.dirty {
		m.pendingRemote = doc
		return
	}
	m.pendingRemote = nil
	if sameDocument(doc, m.base) {
		return
	}
	m.base = doc
	m.textarea.SetValue(toText(doc))
	printDoc(doc)
}

// save writes the current snapshot to the configured file.
func (m model) save() model {
	fileName := m.flags.File
	if fileName == "" {
		fileName = "slatepad-content.json"
	}

	if err := saveDocument(fileName, fromText(m.textarea.Value(), m.base)); err != nil {
		m.status = "Failed to save to " + fileName
		logger.Errorf("failed to save to %s: %v", fileName, err)
		return m
	}
	m.status = "Saved document to " + fileName
	return m
}

// load reads the configured file and submits it as a snapshot.
func (m model) load() (model, tea.Cmd) {
	if m.flags.File == "" {
		m.status = "No file to load!"
		return m, nil
	}

	doc, err := loadDocument(m.flags.File)
	if err != nil {
		m.status = "Failed to load " + m.flags.File
		logger.Errorf("failed to load file %s: %v", m.flags.File, err)
		return m, nil
	}

	m.status = "Loaded " + m.flags.File
	m.base = doc
	m.textarea.SetValue(toText(doc))
	m.dirty = true
	m.seq++
	return m, m.send(doc, m.seq)
}

func (m model) login(name string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := api.Login(ctx, name)
		return loginMsg{identity: id, err: err}
	}
}

func (m model) fetch() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		doc, err := api.GetData(ctx)
		return docMsg{doc: doc, err: err}
	}
}

func (m model) send(doc merge.Document, seq int) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.SendData(ctx, doc)
		return sentMsg{seq: seq, resp: resp, err: err}
	}
}

func (m model) poll() tea.Cmd {
	if m.flags.Poll <= 0 {
		return nil
	}
	return tea.Tick(m.flags.Poll, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// startUpdates subscribes to the WebSocket feed in live mode and starts polling otherwise.
func (m model) startUpdates() tea.Cmd {
	if !m.flags.Live {
		return m.poll()
	}
	api := m.api
	return func() tea.Msg {
		docs, err := api.Subscribe(context.Background())
		return liveMsg{docs: docs, err: err}
	}
}

func debounce(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	})
}

func waitForDoc(docs <-chan merge.Document) tea.Cmd {
	if docs == nil {
		return nil
	}
	return func() tea.Msg {
		doc, ok := <-docs
		if !ok {
			return liveMsg{err: errors.New("live connection closed")}
		}
		return docMsg{doc: doc, live: true}
	}
}

var (
	headingStyles = map[merge.ElementType]lipgloss.Style{
		merge.TypeHeadingOne:   lipgloss.NewStyle().Bold(true).Underline(true),
		merge.TypeHeadingTwo:   lipgloss.NewStyle().Bold(true),
		merge.TypeHeadingThree: lipgloss.NewStyle().Bold(true).Italic(true),
	}
	imageStyle  = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// renderPreview renders the document with its marks and headings.
func renderPreview(doc merge.Document) string {
	lines := make([]string, len(doc))
	for i, n := range doc {
		el, ok := n.(*merge.Element)
		switch {
		case ok && el.Type == merge.TypeImage:
			lines[i] = imageStyle.Render(renderLine(el))
		case ok:
			line := renderInline(el)
			if style, heading := headingStyles[el.Type]; heading {
				line = style.Render(line)
			}
			lines[i] = line
		default:
			lines[i] = renderInline(n)
		}
	}
	return strings.Join(lines, "\n")
}

func renderInline(n merge.Node) string {
	switch n := n.(type) {
	case *merge.Text:
		return markStyle(n.Marks, n.Text)
	case *merge.Element:
		if n.Type.IsVoid() {
			return ""
		}
		var b strings.Builder
		for _, c := range n.Children {
			b.WriteString(renderInline(c))
		}
		return b.String()
	}
	return ""
}

func markStyle(marks merge.Marks, text string) string {
	if marks == (merge.Marks{}) || text == "" {
		return text
	}
	style := lipgloss.NewStyle().
		Bold(marks.Bold).
		Italic(marks.Italic).
		Underline(marks.Underline)
	if marks.Code {
		style = style.Foreground(lipgloss.Color("205"))
	}
	return style.Render(text)
}

func loginView(m model) string {
	return fmt.Sprintf(
		"Enter username:\n\n%s\n\n%s\n%s",
		m.textInput.View(),
		statusStyle.Render(m.status),
		"(esc to quit)",
	) + "\n"
}

func editorView(m model) string {
	return fmt.Sprintf(
		"Username: %s\n\n%s\n\n%s\n\n%s\n%s",
		m.identity.Name,
		m.textarea.View(),
		renderPreview(fromText(m.textarea.Value(), m.base)),
		statusStyle.Render(m.status),
		"(ctrl+s to save, ctrl+l to load, ctrl+c to quit)",
	) + "\n\n"
}

func (m model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}
	if m.view == viewLogin {
		return loginView(m)
	}
	return editorView(m)
}
