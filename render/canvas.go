// Package render provides render targets for the scheduler.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/greenstep/sim"
)

// DefaultMaxFrameRate caps how often a canvas redraws. Repaints requested
// faster than that are merged, since they cannot be seen anyway.
const DefaultMaxFrameRate = 60

// A WorldSource tells which world to draw. *sim.Scheduler is a WorldSource.
type WorldSource interface {
	World() sim.World
}

// A Grid is a world that can be drawn cell by cell.
type Grid interface {
	Width() int
	Height() int
	Objects() []sim.Actor
	Location(a sim.Actor) (x, y int, err error)
}

// Glyph is an actor that knows how to show itself on a text canvas.
type Glyph interface {
	Glyph() rune
}

const (
	emptyCell   = '.'
	unknownCell = '?'
	clearScreen = "\033[H\033[2J"
)

// A TextCanvas draws grid worlds as text. Repaint requests are coalesced and
// drawn on the goroutine running Run.
type TextCanvas struct {
	lock   sync.Mutex
	out    io.Writer
	source WorldSource
	clear  bool

	minInterval time.Duration
	requests    chan struct{}
	frames      atomic.Uint64
}

// NewTextCanvas creates a canvas that writes to out.
func NewTextCanvas(out io.Writer) *TextCanvas {
	c := &TextCanvas{
		out:      out,
		requests: make(chan struct{}, 1),
	}

	return c.WithMaxFrameRate(DefaultMaxFrameRate)
}

// WithMaxFrameRate sets the highest number of frames drawn per second. Zero
// or negative values remove the cap.
func (c *TextCanvas) WithMaxFrameRate(fps int) *TextCanvas {
	if fps <= 0 {
		c.minInterval = 0
		return c
	}

	c.minInterval = time.Second / time.Duration(fps)

	return c
}

// WithClearScreen makes the canvas clear the terminal before each frame.
func (c *TextCanvas) WithClearScreen() *TextCanvas {
	c.clear = true
	return c
}

// Attach sets where the canvas finds the world to draw.
func (c *TextCanvas) Attach(source WorldSource) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.source = source
}

// Repaint requests a redraw. It never blocks.
func (c *TextCanvas) Repaint() {
	select {
	case c.requests <- struct{}{}:
	default:
	}
}

// Frames returns the number of frames drawn so far.
func (c *TextCanvas) Frames() uint64 {
	return c.frames.Load()
}

// Run draws a frame for every coalesced repaint request until ctx is done.
func (c *TextCanvas) Run(ctx context.Context) error {
	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.requests:
		}

		if wait := c.minInterval - time.Since(last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}

		last = time.Now()
		if err := c.Draw(); err != nil {
			return err
		}
	}
}

// Draw draws the current world synchronously.
func (c *TextCanvas) Draw() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.source == nil {
		return nil
	}

	grid, ok := c.source.World().(Grid)
	if !ok {
		return nil
	}

	bw := bufio.NewWriter(c.out)
	if c.clear {
		if _, err := bw.WriteString(clearScreen); err != nil {
			return err
		}
	}

	for _, row := range Rows(grid) {
		if _, err := fmt.Fprintln(bw, row); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render: flush frame: %w", err)
	}

	c.frames.Add(1)

	return nil
}

// Rows renders a grid into one string per row. When several actors share a
// cell, the one added last is shown.
func Rows(g Grid) []string {
	width, height := g.Width(), g.Height()

	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = make([]rune, width)
		for x := range cells[y] {
			cells[y][x] = emptyCell
		}
	}

	for _, a := range g.Objects() {
		x, y, err := g.Location(a)
		if err != nil || x < 0 || y < 0 || x >= width || y >= height {
			continue
		}

		cells[y][x] = glyphOf(a)
	}

	rows := make([]string, height)
	for y, row := range cells {
		rows[y] = string(row)
	}

	return rows
}

func glyphOf(a sim.Actor) rune {
	if g, ok := a.(Glyph); ok {
		return g.Glyph()
	}

	return unknownCell
}

// Headless is a render target that only counts repaint requests.
type Headless struct {
	count atomic.Uint64
}

// Repaint counts a repaint request.
func (h *Headless) Repaint() {
	h.count.Add(1)
}

// Count returns the number of repaint requests received.
func (h *Headless) Count() uint64 {
	return h.count.Load()
}

var (
	_ sim.RenderTarget = (*TextCanvas)(nil)
	_ sim.RenderTarget = (*Headless)(nil)
)
