// Package termgrid prints the program guide to a terminal.
package termgrid

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/internal/guide"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/pkg/format"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// slotPrefix is the cell width of "    HH:MM  1h30m  > ".
const slotPrefix = 20

// Options controls how the guide is printed.
type Options struct {
	Width       int       // terminal width in cells
	Now         time.Time // marks the slot on air; zero disables the marker
	HideFillers bool
	NoColor     bool
}

// Printer writes guide views as text.
type Printer struct {
	w    io.Writer
	opts Options

	header  *color.Color
	channel *color.Color
	onAir   *color.Color
	muted   *color.Color
	ok      *color.Color
	busy    *color.Color
}

// New creates a printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	if opts.Width <= slotPrefix {
		opts.Width = DefaultWidth
	}

	p := &Printer{
		w:       w,
		opts:    opts,
		header:  color.New(color.Bold),
		channel: color.New(color.FgCyan, color.Bold),
		onAir:   color.New(color.FgYellow, color.Bold),
		muted:   color.New(color.FgWhite, color.Faint),
		ok:      color.New(color.FgGreen),
		busy:    color.New(color.FgRed),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{p.header, p.channel, p.onAir, p.muted, p.ok, p.busy} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) rule() string {
	return strings.Repeat("─", p.opts.Width)
}

// PrintDays lists broadcast days, marking today.
func (p *Printer) PrintDays(days []broadcastday.Key, today broadcastday.Key) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(p.w, p.muted.Sprint("No programs in the guide."))
		return err
	}

	var b strings.Builder
	for _, k := range days {
		line := fmt.Sprintf("  %s  %s - %s", k.Time().Format("2006-01-02 (Mon)"),
			k.Start().Format("01/02 15:04"), k.End().Format("01/02 15:04"))
		if k == today {
			line = p.onAir.Sprint(line + "  today")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// PrintDay prints every channel of a broadcast day with its slots.
func (p *Printer) PrintDay(view *service.DayView) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n  %s\n", p.header.Sprintf("%s  %s - %s",
		view.Key.Time().Format("Mon Jan 2, 2006"),
		view.Start.Format("15:04"),
		view.End.Format("01/02 15:04")))
	b.WriteString(p.rule())
	b.WriteByte('\n')

	if len(view.Channels) == 0 {
		b.WriteString(p.muted.Sprint("  No channels."))
		b.WriteByte('\n')
	}

	for i, ch := range view.Channels {
		if i > 0 {
			b.WriteByte('\n')
		}
		p.writeChannel(&b, ch)
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) writeChannel(b *strings.Builder, ch service.ChannelView) {
	name := strconv.Itoa(ch.NetworkID) + "/" + strconv.Itoa(ch.ServiceID)
	if ch.Service != nil && ch.Service.Name != "" {
		name = ch.Service.Name + "  " + p.muted.Sprint(name)
	}
	fmt.Fprintf(b, "  %s\n", p.channel.Sprint(name))

	nameCells := p.opts.Width - slotPrefix
	for _, s := range ch.Slots {
		if s.IsFiller() && p.opts.HideFillers {
			continue
		}
		p.writeSlot(b, s, nameCells)
	}
}

func (p *Printer) writeSlot(b *strings.Builder, s guide.Slot, nameCells int) {
	prefix := fmt.Sprintf("    %s  %s", format.Clock(s.StartAt), format.Pad(format.Span(s.Duration), 5))

	if s.IsFiller() {
		b.WriteString(p.muted.Sprint(prefix + "    ·"))
		b.WriteByte('\n')
		return
	}

	title := format.Truncate(s.Program.Name, nameCells)
	if p.onAirAt(s) {
		b.WriteString(p.onAir.Sprint(prefix + "  > " + title))
	} else {
		b.WriteString(prefix + "    " + title)
	}
	b.WriteByte('\n')
}

func (p *Printer) onAirAt(s guide.Slot) bool {
	if p.opts.Now.IsZero() {
		return false
	}
	now := p.opts.Now.UnixMilli()
	return s.StartAt <= now && now < s.EndAt()
}

// PrintStatus prints a one-line summary of the held guide.
func (p *Printer) PrintStatus(st service.Status, now time.Time) error {
	line := fmt.Sprintf("%s programs on %s services", format.Number(int64(st.ProgramCount)), format.Number(int64(st.ServiceCount)))
	if !st.LastRefresh.IsZero() {
		line += ", fetched " + format.RelativeTime(st.LastRefresh, now)
	}
	if st.LoadedFrom != "" {
		line += " from " + st.LoadedFrom
	}
	_, err := fmt.Fprintln(p.w, p.muted.Sprint("  "+line))
	return err
}

// stateWidth is the cell width of the longest tuner state.
const stateWidth = len(mirakc.TunerPreemptible)

// PrintTuners lists tuners with their state and users, then the mirakc
// version.
func (p *Printer) PrintTuners(st *service.TunerStatus) error {
	var b strings.Builder
	if len(st.Tuners) == 0 {
		b.WriteString(p.muted.Sprint("No tuners found. Check the mirakc tuner configuration.") + "\n")
	}

	nameCells := 0
	for _, t := range st.Tuners {
		nameCells = max(nameCells, format.DisplayWidth(t.Name))
	}

	for _, t := range st.Tuners {
		state := t.State()
		b.WriteString("  " + p.stateColor(state).Sprint(format.Pad(string(state), stateWidth)))
		b.WriteString("  " + format.Pad(t.Name, nameCells))
		b.WriteString("  " + p.muted.Sprint(strings.Join(t.Types, ":")) + "\n")
		for _, u := range t.Users {
			line := "      " + u.ID + "  priority " + strconv.Itoa(u.Priority)
			if u.Agent != "" {
				line += "  " + u.Agent
			}
			b.WriteString(p.muted.Sprint(line) + "\n")
		}
	}

	if v := st.Version; v != nil {
		b.WriteString("\n  mirakc " + v.Current + "\n")
		if v.UpdateAvailable() {
			b.WriteString("  " + p.onAir.Sprint("New version available: "+v.Latest) + "\n")
		}
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) stateColor(s mirakc.TunerState) *color.Color {
	switch s {
	case mirakc.TunerFree:
		return p.ok
	case mirakc.TunerPreemptible:
		return p.onAir
	case mirakc.TunerUsing:
		return p.busy
	default:
		return p.muted
	}
}
