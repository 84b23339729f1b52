package costmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/geo"
)

// ApplyRoads reads the roads CSV (a geometry column of LINESTRING rows in the
// grid's metric CRS), samples each polyline at spacing meters, and lowers the
// terrain cost of every sampled cell by reduction, floored at zero. A missing
// file only logs a warning; the cost map stays terrain-only.
func (g *Grid) ApplyRoads(path string, spacing, reduction float64, log *logrus.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Warn("roads file not found, skipping road cost reduction")
		return nil
	}
	defer f.Close()

	lines, err := readRoadLines(f)
	if err != nil {
		return fmt.Errorf("costmap: reading %s: %w", path, err)
	}
	cells := g.ApplyRoadLines(lines, spacing, reduction)
	log.WithFields(logrus.Fields{"roads": len(lines), "cells": cells}).Info("road cost reduction applied")
	return nil
}

// ApplyRoadLines is the in-memory road application path used by tests and by
// ApplyRoads. It returns the number of distinct road cells marked.
func (g *Grid) ApplyRoadLines(lines [][]geo.MetricPoint, spacing, reduction float64) int {
	w := len(g.xs)
	marked := 0
	for _, line := range lines {
		for _, p := range SampleLine(line, spacing) {
			idx, in := g.NearestIndex(p)
			if !in {
				continue
			}
			if !g.roadMask[idx.Row*w+idx.Col] {
				g.roadMask[idx.Row*w+idx.Col] = true
				marked++
			}
		}
	}
	for i := 0; i < len(g.ys); i++ {
		for j := 0; j < w; j++ {
			if !g.roadMask[i*w+j] {
				continue
			}
			c := g.terrain.At(i, j)
			if math.IsInf(c, 1) {
				continue
			}
			g.terrain.Set(i, j, math.Max(0, c-reduction))
		}
	}
	return marked
}

// SampleLine walks a polyline by arc length and returns points every spacing
// meters from its start, the original vertices excluded unless hit exactly.
func SampleLine(line []geo.MetricPoint, spacing float64) []geo.MetricPoint {
	if len(line) < 2 || spacing <= 0 {
		return line
	}
	total := 0.0
	for k := 1; k < len(line); k++ {
		total += geo.Dist(line[k-1], line[k])
	}

	var out []geo.MetricPoint
	seg := 0
	segStart := 0.0
	for d := 0.0; d < total; d += spacing {
		for seg < len(line)-2 && segStart+geo.Dist(line[seg], line[seg+1]) < d {
			segStart += geo.Dist(line[seg], line[seg+1])
			seg++
		}
		segLen := geo.Dist(line[seg], line[seg+1])
		f := 0.0
		if segLen > 0 {
			f = (d - segStart) / segLen
		}
		out = append(out, geo.MetricPoint{
			X: line[seg].X + (line[seg+1].X-line[seg].X)*f,
			Y: line[seg].Y + (line[seg+1].Y-line[seg].Y)*f,
		})
	}
	return out
}

func readRoadLines(r io.Reader) ([][]geo.MetricPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	geomCol := -1
	for i, name := range header {
		if name == "geometry" {
			geomCol = i
		}
	}
	if geomCol < 0 {
		return nil, fmt.Errorf("missing geometry column, got %v", header)
	}

	var lines [][]geo.MetricPoint
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if geomCol >= len(row) {
			continue
		}
		line, ok := parseLineString(row[geomCol])
		if ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// parseLineString parses "LINESTRING (x y, x y, ...)". Rows that are not
// linestrings are skipped rather than failing the whole file.
func parseLineString(s string) ([]geo.MetricPoint, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "LINESTRING") {
		return nil, false
	}
	s = strings.TrimPrefix(s, "LINESTRING")
	s = strings.Trim(strings.TrimSpace(s), "()")

	var line []geo.MetricPoint
	for _, pair := range strings.Split(s, ",") {
		fields := strings.Fields(pair)
		if len(fields) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		line = append(line, geo.MetricPoint{X: x, Y: y})
	}
	if len(line) < 2 {
		return nil, false
	}
	return line, true
}
