package worker

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const barWidth = 50

// Meter renders a textual progress bar with a smoothed transfer rate.
// The rate is resampled at most once per second; the bar itself is
// redrawn on every chunk.
type Meter struct {
	w       io.Writer
	total   int64
	written int64

	lastSample time.Time
	lastBytes  int64
	rate       string

	now func() time.Time
}

// NewMeter creates a progress meter for a transfer of total bytes.
func NewMeter(w io.Writer, total int64) *Meter {
	m := &Meter{
		w:     w,
		total: total,
		rate:  FormatRate(0),
		now:   time.Now,
	}
	m.lastSample = m.now()
	return m
}

// Add accounts for n freshly written bytes and redraws the indicator.
func (m *Meter) Add(n int) {
	m.written += int64(n)

	now := m.now()
	if elapsed := now.Sub(m.lastSample); elapsed >= time.Second {
		perSec := float64(m.written-m.lastBytes) / elapsed.Seconds()
		m.rate = FormatRate(int64(perSec))
		m.lastSample = now
		m.lastBytes = m.written
	}

	m.render()
}

// Finish terminates the progress line.
func (m *Meter) Finish() {
	if m.w == nil {
		return
	}
	fmt.Fprintln(m.w)
}

func (m *Meter) render() {
	if m.w == nil || m.total <= 0 {
		return
	}

	done := int(barWidth * m.written / m.total)
	var head string
	switch {
	case done == 0:
	case done == barWidth:
		head = "="
	default:
		head = ">"
	}
	fill := done - 1
	if fill < 0 {
		fill = 0
	}

	fmt.Fprintf(m.w, "\r[%s%s%s] %3d%% %s",
		strings.Repeat("=", fill),
		head,
		strings.Repeat(" ", barWidth-done),
		100*m.written/m.total,
		m.rate)
}

// FormatRate expresses a byte rate in the largest binary unit that
// keeps the scaled value at or above one (B, KiB, MiB, GiB, TiB, ...).
func FormatRate(bytesPerSec int64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}
