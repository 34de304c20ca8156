// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package chart renders line charts for the terminal presenters. A chart
// handle is created once per surface and updated in place on every tick;
// ticks can arrive at sub-second cadence from the realtime channel, so
// there is no teardown/recreate path and no animation - every render
// reflects the current data truthfully.
package chart

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Fixed visual style: filled area under the line, no point markers.
const (
	strokeRune = '█'
	fillRune   = '░'
	emptyRune  = ' '
)

// Chart is a handle to one live line chart.
type Chart struct {
	mu     sync.RWMutex
	label  string
	color  string
	labels []string
	series []float64
}

// RenderOrUpdate creates a chart when existing is nil, otherwise
// replaces the existing chart's label and series arrays in place and
// returns the same handle.
//
// Labels and series are added and dropped together: a length mismatch is
// rejected so every rendered point always has its x label.
func RenderOrUpdate(existing *Chart, label string, xLabels []string, series []float64, color string) (*Chart, error) {
	if len(xLabels) != len(series) {
		return existing, fmt.Errorf("label/series length mismatch: %d labels, %d points", len(xLabels), len(series))
	}

	if existing == nil {
		existing = &Chart{}
	}

	existing.mu.Lock()
	defer existing.mu.Unlock()
	existing.label = label
	existing.color = color
	existing.labels = append(existing.labels[:0], xLabels...)
	existing.series = append(existing.series[:0], series...)
	return existing, nil
}

// Label returns the chart's series label.
func (c *Chart) Label() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.label
}

// Points returns the number of data points.
func (c *Chart) Points() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.series)
}

// Labels returns a copy of the x labels.
func (c *Chart) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Series returns a copy of the data points.
func (c *Chart) Series() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]float64, len(c.series))
	copy(out, c.series)
	return out
}

// Render rasterizes the chart into height text rows of width columns.
// The newest points occupy the right edge; when there are more points
// than columns the series is downsampled by taking column maxima, so
// spikes survive rendering.
func (c *Chart) Render(width, height int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if width <= 0 || height <= 0 {
		return nil
	}

	rows := make([][]rune, height)
	for i := range rows {
		rows[i] = make([]rune, width)
		for j := range rows[i] {
			rows[i][j] = emptyRune
		}
	}

	if len(c.series) > 0 {
		columns := resample(c.series, width)
		maxVal := maxOf(columns)
		if maxVal <= 0 {
			maxVal = 1
		}
		offset := width - len(columns)
		for i, v := range columns {
			if math.IsNaN(v) {
				continue
			}
			// Scale to [0,height]; the top cell is the stroke, the
			// cells below it the area fill.
			level := int(math.Round(v / maxVal * float64(height)))
			if level > height {
				level = height
			}
			for y := 0; y < level; y++ {
				r := fillRune
				if y == level-1 {
					r = strokeRune
				}
				rows[height-1-y][offset+i] = r
			}
		}
	}

	out := make([]string, height)
	for i, row := range rows {
		out[i] = string(row)
	}
	return out
}

// resample reduces a series to at most width columns, taking the max of
// each column's bucket. Series shorter than width pass through.
func resample(series []float64, width int) []float64 {
	if len(series) <= width {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}

	out := make([]float64, width)
	bucket := float64(len(series)) / float64(width)
	for i := 0; i < width; i++ {
		lo := int(float64(i) * bucket)
		hi := int(float64(i+1) * bucket)
		if hi > len(series) {
			hi = len(series)
		}
		maxV := series[lo]
		for _, v := range series[lo+1 : hi] {
			if v > maxV {
				maxV = v
			}
		}
		out[i] = maxV
	}
	return out
}

// maxOf returns the maximum of a slice, 0 for empty input.
func maxOf(values []float64) float64 {
	var maxV float64
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}
	return maxV
}

// Summary renders a one-line caption: label, latest value, peak.
func (c *Chart) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.series) == 0 {
		return c.label + ": no data"
	}
	latest := c.series[len(c.series)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.2f (peak %.2f, %d pts)", c.label, latest, maxOf(c.series), len(c.series))
	return b.String()
}
