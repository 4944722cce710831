// Package viewer is the interactive terminal viewer for a pair of documents.
//
// The current page is drawn with half-block characters: the composite when
// the page differs, otherwise the first document's page. A gutter on the
// left shows the page thumbnail and the per-page difference map.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"

	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/raster"
)

const (
	// DefaultZoomStep is the factor applied per zoom key press.
	DefaultZoomStep = 1.2

	gutterWidth  = 24
	statusHeight = 2
	minScale     = 0.01
	maxScale     = 16.0
)

// Comparer is the part of compare.Service the viewer needs.
type Comparer interface {
	Compare(ctx context.Context, doc1, doc2 domain.Document, opts compare.Options) (*domain.Summary, error)
	RenderPair(doc1, doc2 domain.Document, index int) (*raster.Image, *raster.Image, error)
	DiffPair(a, b *raster.Image, offset diff.Offset, wantThumbnail bool) *diff.Result
}

// Opener reopens both input documents after they changed on disk.
type Opener func() (domain.Document, domain.Document, error)

// Options configures a Model.
type Options struct {
	Doc1    domain.Document
	Doc2    domain.Document
	DiffMap domain.PageDiffMap

	ZoomStep float64

	// Open and Changes enable live reload; both may be nil.
	Open    Opener
	Changes <-chan struct{}

	Logger *observability.Logger
	Keys   *KeyMap
	Styles *Styles
}

type fileChangedMsg struct{}

type reloadedMsg struct {
	doc1    domain.Document
	doc2    domain.Document
	diffMap domain.PageDiffMap
	err     error
}

// pageCache holds the rasters of the last viewed page so that offset
// changes only re-run the diff.
type pageCache struct {
	valid bool
	index int
	a, b  *raster.Image
}

type scaledCache struct {
	src  *raster.Image
	w, h int
	img  *image.NRGBA
}

// Model is the viewer state. It implements tea.Model.
type Model struct {
	ctx     context.Context
	cmp     Comparer
	keys    *KeyMap
	styles  *Styles
	logger  *observability.Logger
	open    Opener
	changes <-chan struct{}

	doc1, doc2 domain.Document
	// owned is set once the documents were opened by a reload
	owned   bool
	diffMap domain.PageDiffMap

	page     int
	offset   diff.Offset
	scale    float64 // 0 means fit to the viewport
	zoomStep float64
	scrollX  int
	scrollY  int

	width  int
	height int

	cache  pageCache
	result *diff.Result
	scaled scaledCache
	err    error

	reloading     bool
	reloadPending bool
}

var _ tea.Model = (*Model)(nil)

// NewModel creates a viewer positioned on the first page.
func NewModel(cmp Comparer, opts Options) (*Model, error) {
	if cmp == nil {
		return nil, domain.ValidationError("viewer requires a comparer", nil)
	}
	if opts.Doc1 == nil || opts.Doc2 == nil {
		return nil, domain.ValidationError("viewer requires two documents", nil)
	}
	total := max(opts.Doc1.PageCount(), opts.Doc2.PageCount())
	if total == 0 {
		return nil, domain.ValidationError("both documents are empty", nil)
	}
	if len(opts.DiffMap) != total {
		return nil, domain.ValidationError(fmt.Sprintf("difference map has %d entries for %d pages", len(opts.DiffMap), total), nil)
	}

	m := &Model{
		ctx:      context.Background(),
		cmp:      cmp,
		keys:     opts.Keys,
		styles:   opts.Styles,
		logger:   opts.Logger,
		open:     opts.Open,
		changes:  opts.Changes,
		doc1:     opts.Doc1,
		doc2:     opts.Doc2,
		diffMap:  opts.DiffMap,
		zoomStep: opts.ZoomStep,
	}
	if m.keys == nil {
		m.keys = DefaultKeyMap()
	}
	if m.styles == nil {
		m.styles = DefaultStyles()
	}
	if m.logger == nil {
		m.logger = observability.NopLogger()
	}
	m.logger = m.logger.WithComponent("viewer")
	if m.zoomStep <= 1 {
		m.zoomStep = DefaultZoomStep
	}

	m.refresh()
	return m, nil
}

// WithContext sets the context used for reload scans.
func (m *Model) WithContext(ctx context.Context) *Model {
	m.ctx = ctx
	return m
}

// Page returns the zero-based current page.
func (m *Model) Page() int { return m.page }

// Offset returns the current alignment offset.
func (m *Model) Offset() diff.Offset { return m.offset }

// DiffMap returns the per-page difference map.
func (m *Model) DiffMap() domain.PageDiffMap { return m.diffMap }

// Scale returns the current zoom factor, one terminal cell column per
// raster pixel being 1.
func (m *Model) Scale() float64 { return m.currentScale() }

// Err returns the last render or reload error.
func (m *Model) Err() error { return m.err }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("pdf-diff"),
		m.waitForChange(),
	)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case fileChangedMsg:
		cmd := m.waitForChange()
		if m.open == nil {
			return m, cmd
		}
		if m.reloading {
			m.reloadPending = true
			return m, cmd
		}
		m.reloading = true
		return m, tea.Batch(m.reload(), cmd)

	case reloadedMsg:
		m.reloading = false
		m.applyReload(msg)
		if m.reloadPending {
			m.reloadPending = false
			m.reloading = true
			return m, m.reload()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.PrevPage):
		m.goToPage(m.page - 1)
	case key.Matches(msg, m.keys.NextPage):
		m.goToPage(m.page + 1)
	case key.Matches(msg, m.keys.NextDiff):
		if next := m.diffMap.Next(m.page); next >= 0 {
			m.goToPage(next)
		}
	case key.Matches(msg, m.keys.PrevDiff):
		if prev := m.diffMap.Prev(m.page); prev >= 0 {
			m.goToPage(prev)
		}

	case key.Matches(msg, m.keys.ZoomIn):
		m.zoom(m.zoomStep)
	case key.Matches(msg, m.keys.ZoomOut):
		m.zoom(1 / m.zoomStep)

	case key.Matches(msg, m.keys.ScrollUp):
		m.scroll(0, -1)
	case key.Matches(msg, m.keys.ScrollDown):
		m.scroll(0, 1)
	case key.Matches(msg, m.keys.ScrollLeft):
		m.scroll(-1, 0)
	case key.Matches(msg, m.keys.ScrollRight):
		m.scroll(1, 0)

	case key.Matches(msg, m.keys.OffsetUp):
		m.setOffset(diff.Offset{DX: m.offset.DX, DY: m.offset.DY - 1})
	case key.Matches(msg, m.keys.OffsetDown):
		m.setOffset(diff.Offset{DX: m.offset.DX, DY: m.offset.DY + 1})
	case key.Matches(msg, m.keys.OffsetLeft):
		m.setOffset(diff.Offset{DX: m.offset.DX - 1, DY: m.offset.DY})
	case key.Matches(msg, m.keys.OffsetRight):
		m.setOffset(diff.Offset{DX: m.offset.DX + 1, DY: m.offset.DY})
	case key.Matches(msg, m.keys.OffsetReset):
		m.setOffset(diff.Offset{})
	}

	return m, nil
}

func (m *Model) goToPage(n int) {
	if n < 0 || n >= len(m.diffMap) || n == m.page {
		return
	}
	m.page = n
	m.scrollX, m.scrollY = 0, 0
	m.refresh()
}

func (m *Model) setOffset(off diff.Offset) {
	if off == m.offset {
		return
	}
	m.offset = off
	m.refresh()
}

// refresh recomputes the current page, rendering only when the page changed.
func (m *Model) refresh() {
	if !m.cache.valid || m.cache.index != m.page {
		a, b, err := m.cmp.RenderPair(m.doc1, m.doc2, m.page)
		if err != nil {
			m.err = err
			m.result = nil
			m.cache = pageCache{}
			m.logger.Warn().Err(err).Int("page", m.page+1).Msg("Failed to render page")
			return
		}
		m.cache = pageCache{valid: true, index: m.page, a: a, b: b}
	}

	m.err = nil
	m.result = m.cmp.DiffPair(m.cache.a, m.cache.b, m.offset, true)
	m.clampScroll()
}

// displayed returns the raster drawn in the page area.
func (m *Model) displayed() *raster.Image {
	if m.result != nil && m.result.Composite != nil {
		return m.result.Composite
	}
	if m.cache.a != nil {
		return m.cache.a
	}
	return m.cache.b
}

func (m *Model) gutterCols() int {
	if m.width >= 3*gutterWidth {
		return gutterWidth
	}
	return 0
}

// viewport returns the page area in cells.
func (m *Model) viewport() (cols, rows int) {
	cols = max(1, m.width-m.gutterCols())
	rows = max(1, m.height-statusHeight)
	return cols, rows
}

func (m *Model) currentScale() float64 {
	if m.scale > 0 {
		return m.scale
	}
	return m.fitScale()
}

// fitScale fits the whole page into the viewport.
func (m *Model) fitScale() float64 {
	img := m.displayed()
	if img == nil || m.width == 0 || m.height == 0 {
		return 1
	}
	cols, rows := m.viewport()
	s := min(float64(cols)/float64(img.Width), float64(2*rows)/float64(img.Height))
	return clampScale(s)
}

func clampScale(s float64) float64 {
	return min(max(s, minScale), maxScale)
}

func (m *Model) zoom(factor float64) {
	m.scale = clampScale(m.currentScale() * factor)
	m.clampScroll()
}

func (m *Model) scaledSize() (int, int) {
	img := m.displayed()
	if img == nil {
		return 0, 0
	}
	s := m.currentScale()
	return max(1, int(float64(img.Width)*s+0.5)), max(1, int(float64(img.Height)*s+0.5))
}

func (m *Model) scroll(dx, dy int) {
	cols, rows := m.viewport()
	m.scrollX += dx * max(1, cols/8)
	m.scrollY += dy * max(2, rows/4*2)
	m.clampScroll()
}

func (m *Model) clampScroll() {
	cols, rows := m.viewport()
	sw, sh := m.scaledSize()
	m.scrollX = min(max(m.scrollX, 0), max(0, sw-cols))
	m.scrollY = min(max(m.scrollY, 0), max(0, sh-2*rows))
}

func (m *Model) scaledImage(src *raster.Image, w, h int) *image.NRGBA {
	if m.scaled.src == src && m.scaled.w == w && m.scaled.h == h && m.scaled.img != nil {
		return m.scaled.img
	}
	img := imaging.Resize(src.ToNRGBA(), w, h, imaging.Box)
	m.scaled = scaledCache{src: src, w: w, h: h, img: img}
	return img
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	body := m.renderPage()
	if m.gutterCols() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderGutter(), body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus())
}

func (m *Model) renderPage() string {
	cols, rows := m.viewport()
	img := m.displayed()
	if img == nil {
		return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, "")
	}

	sw, sh := m.scaledSize()
	scaled := m.scaledImage(img, sw, sh)
	visible := imaging.Crop(scaled, image.Rect(m.scrollX, m.scrollY, m.scrollX+cols, m.scrollY+2*rows))
	return lipgloss.Place(cols, rows, lipgloss.Left, lipgloss.Top, strings.Join(halfBlocks(visible), "\n"))
}

func (m *Model) renderGutter() string {
	inner := m.gutterCols() - 1
	_, rows := m.viewport()

	var lines []string
	if m.result != nil && m.result.Thumbnail != nil {
		th := m.result.Thumbnail
		h := max(1, th.Height*inner/th.Width)
		if (h+1)/2 <= rows/2 {
			lines = append(lines, halfBlocks(imaging.Resize(th.ToNRGBA(), inner, h, imaging.Box))...)
			lines = append(lines, "")
		}
	}

	listRows := rows - len(lines)
	total := len(m.diffMap)
	start := min(max(0, m.page-listRows/2), max(0, total-listRows))
	for i := start; i < total && i < start+listRows; i++ {
		marker, state := m.styles.Unchanged.Render("■"), "same"
		if m.diffMap[i] {
			marker, state = m.styles.Changed.Render("■"), "differs"
		}
		label := fmt.Sprintf(" %4d %-7s", i+1, state)
		if i == m.page {
			label = m.styles.Current.Render(label)
		}
		lines = append(lines, marker+label)
	}

	return m.styles.Gutter.
		Width(inner).
		Height(rows).
		MaxHeight(rows).
		Render(strings.Join(lines, "\n"))
}

// StatusText returns the page line of the status bar.
func (m *Model) StatusText() string {
	state := "is unchanged"
	if m.diffMap[m.page] {
		state = "differs"
	}
	return fmt.Sprintf("Page %d of %d; %d of them are different, this page %s",
		m.page+1, len(m.diffMap), m.diffMap.Count(), state)
}

// ZoomText returns the zoom and offset part of the status bar.
func (m *Model) ZoomText() string {
	return fmt.Sprintf("%.1f%% [offset %d,%d]", m.currentScale()*100, m.offset.DX, m.offset.DY)
}

func (m *Model) renderStatus() string {
	first := m.StatusText()
	if m.reloading {
		first += " (reloading)"
	}
	top := m.styles.StatusInfo.Width(m.width).Render(truncate(first, m.width))
	if m.err != nil {
		top = m.styles.Error.Width(m.width).Render(truncate("error: "+m.err.Error(), m.width))
	}

	left := truncate(m.ZoomText(), m.width)
	right := m.helpText()
	line := left
	if padding := m.width - len(left) - lipgloss.Width(right); padding >= 1 {
		line = left + strings.Repeat(" ", padding) + m.styles.Help.Render(right)
	}
	bottom := m.styles.StatusBar.Width(m.width).Render(line)

	return top + "\n" + bottom
}

// truncate cuts s to at most n runes so styled lines never wrap.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:max(0, n)])
}

func (m *Model) helpText() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

// reload reopens both documents and rebuilds the difference map off the
// UI goroutine. The new documents are not shared with the model until
// the result is applied.
func (m *Model) reload() tea.Cmd {
	ctx, open, cmp := m.ctx, m.open, m.cmp
	return func() tea.Msg {
		doc1, doc2, err := open()
		if err != nil {
			return reloadedMsg{err: err}
		}
		summary, err := cmp.Compare(ctx, doc1, doc2, compare.Options{CollectDiffMap: true})
		if err == nil && len(summary.DiffMap) == 0 {
			err = domain.ValidationError("both documents are empty", nil)
		}
		if err != nil {
			doc1.Close()
			doc2.Close()
			return reloadedMsg{err: err}
		}
		return reloadedMsg{doc1: doc1, doc2: doc2, diffMap: summary.DiffMap}
	}
}

func (m *Model) applyReload(msg reloadedMsg) {
	if msg.err != nil {
		m.err = fmt.Errorf("reload: %w", msg.err)
		m.logger.Warn().Err(msg.err).Msg("Reload failed, keeping previous documents")
		return
	}

	if m.owned {
		m.closeDocuments()
	}
	m.doc1, m.doc2 = msg.doc1, msg.doc2
	m.owned = true
	m.diffMap = msg.diffMap
	m.page = min(m.page, len(m.diffMap)-1)
	m.cache = pageCache{}
	m.scaled = scaledCache{}
	m.refresh()

	m.logger.Info().Int("pages", len(m.diffMap)).Int("differing", m.diffMap.Count()).Msg("Reloaded documents")
}

func (m *Model) closeDocuments() {
	for _, doc := range []domain.Document{m.doc1, m.doc2} {
		if err := doc.Close(); err != nil {
			m.logger.Warn().Err(err).Str("path", doc.Path()).Msg("Failed to close document")
		}
	}
}

// Close releases documents the viewer opened itself. The documents passed
// in Options stay owned by the caller.
func (m *Model) Close() {
	if m.owned {
		m.closeDocuments()
		m.owned = false
	}
}

// Run shows the viewer until the user quits or ctx is cancelled.
func Run(ctx context.Context, cmp Comparer, opts Options) error {
	m, err := NewModel(cmp, opts)
	if err != nil {
		return err
	}
	m.WithContext(ctx)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
