// Package tui renders interactive indexing progress for `codegraph index --tui`.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"codegraph/internal/indexer"
)

// IndexFunc runs the indexing pipeline, reporting progress through the
// supplied callback.
type IndexFunc func(onProgress indexer.ProgressFunc) (*indexer.Stats, error)

// programRef is an indirect pointer to the tea.Program so the indexing
// goroutine can send messages. It must be set before the program runs.
type programRef struct {
	p *tea.Program
}

type indexDoneMsg struct {
	stats *indexer.Stats
	err   error
}

type indexProgressMsg struct {
	phase string
	done  int
	total int
}

type model struct {
	spinner spinner.Model
	run     IndexFunc
	ref     *programRef

	phase string
	done  int
	total int

	finished bool
	stats    *indexer.Stats
	err      error
}

func newModel(run IndexFunc, ref *programRef) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return model{
		spinner: sp,
		run:     run,
		ref:     ref,
		phase:   "Scanning files...",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runIndex(m.run, m.ref))
}

func runIndex(run IndexFunc, ref *programRef) tea.Cmd {
	return func() tea.Msg {
		stats, err := run(func(phase string, done, total int) {
			if ref.p != nil {
				ref.p.Send(indexProgressMsg{phase: phase, done: done, total: total})
			}
		})
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.done = msg.done
		m.total = msg.total
		return m, nil
	case indexDoneMsg:
		m.finished = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.finished {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter or q to exit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files:   %d total, %d indexed, %d skipped, %d removed\n",
				m.stats.FilesTotal, m.stats.FilesIndexed, m.stats.FilesSkipped, m.stats.FilesRemoved)
			s += fmt.Sprintf("  Symbols: %d (%d embedded)\n", m.stats.Nodes, m.stats.Embedded)
			s += fmt.Sprintf("  Edges:   %d (%d unresolved refs)\n", m.stats.Edges, m.stats.Unresolved)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to exit.") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d files processed\n", m.done, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  This may take a while for large codebases...") + "\n"
	return s
}

// RunIndex drives the indexing pipeline behind a progress screen and
// returns its stats once the user exits.
func RunIndex(run IndexFunc) (*indexer.Stats, error) {
	ref := &programRef{}
	p := tea.NewProgram(newModel(run, ref))
	ref.p = p

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.stats, m.err
}
