/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package report renders dataset exports: a plain-text summary for offline
// use and an HTML document served by the backend.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/carverauto/chemvis/pkg/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Data is everything a report shows.
type Data struct {
	Generated time.Time
	Summary   models.SummaryStats
	Equipment []models.EquipmentItem
	History   []models.HistoryEntry
}

var funcs = template.FuncMap{
	"num":  formatNumber,
	"fix2": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"pad":  func(n int, s string) string { return fmt.Sprintf("%-*s", n, s) },
	"ts":   func(t time.Time) string { return t.Format(time.RFC1123) },
	"cell": func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}

var textTemplate = template.Must(template.New("text").Funcs(funcs).Parse(
	`CHEMVIS PRO - INDUSTRIAL ANALYTICS REPORT
Status: SIMULATED (OFFLINE MODE)
Generated: {{ ts .Generated }}
--------------------------------------------------
GLOBAL SUMMARY METRICS (SYNCED TO DASHBOARD):
- Total Equipment Units: {{ .Summary.TotalEquipment }}
- Avg Flowrate: {{ fix2 .Summary.AvgFlowrate }} m3/h
- Avg Pressure: {{ fix2 .Summary.AvgPressure }} Bar
- Avg Temp: {{ fix2 .Summary.AvgTemperature }} C
--------------------------------------------------
DETAILED ASSET LIST (LATEST UPLOAD):
{{ range .Equipment }}> {{ pad 25 .EquipmentName }} | {{ pad 10 .EquipmentType }} | F:{{ num .Flowrate }} P:{{ num .Pressure }} T:{{ num .Temperature }}C
{{ end }}--------------------------------------------------
END OF REPORT
`))

var markdownTemplate = template.Must(template.New("markdown").Funcs(funcs).Parse(
	`# Industrial Analytics Report

Generated: {{ ts .Generated }}

## Summary

| Metric | Value |
|---|---|
| Total Equipment | {{ .Summary.TotalEquipment }} |
| Avg Flowrate (m3/h) | {{ fix2 .Summary.AvgFlowrate }} |
| Avg Pressure (Bar) | {{ fix2 .Summary.AvgPressure }} |
| Avg Temperature (C) | {{ fix2 .Summary.AvgTemperature }} |

## Type Distribution

| Type | Count | Percentage |
|---|---|---|
{{ range .Types }}| {{ cell .Name }} | {{ .Count }} | {{ .Percentage }}% |
{{ end }}
## Equipment

| Name | Type | Flowrate | Pressure | Temperature |
|---|---|---|---|---|
{{ range .Equipment }}| {{ cell .EquipmentName }} | {{ cell .EquipmentType }} | {{ num .Flowrate }} | {{ num .Pressure }} | {{ num .Temperature }} |
{{ end }}{{ if .History }}
## Recent Uploads

| File | Uploaded | Items |
|---|---|---|
{{ range .History }}| {{ cell .Filename }} | {{ ts .UploadDate }} | {{ .ItemCount }} |
{{ end }}{{ end }}`))

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Text renders the offline plain-text report.
func Text(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render text report: %w", err)
	}

	return buf.Bytes(), nil
}

type typeCount struct {
	Name       string
	Count      int
	Percentage string
}

// Markdown renders the report as GitHub-flavoured markdown.
func Markdown(d *Data) ([]byte, error) {
	total := 0
	for _, n := range d.Summary.TypeDistribution {
		total += n
	}

	types := make([]typeCount, 0, len(d.Summary.TypeDistribution))
	for name, n := range d.Summary.TypeDistribution {
		types = append(types, typeCount{Name: name, Count: n, Percentage: percentage(n, total)})
	}

	sort.Slice(types, func(i, j int) bool {
		if types[i].Count != types[j].Count {
			return types[i].Count > types[j].Count
		}

		return types[i].Name < types[j].Name
	})

	view := struct {
		*Data
		Types []typeCount
	}{Data: d, Types: types}

	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render markdown report: %w", err)
	}

	return buf.Bytes(), nil
}

// percentage formats n as a share of total with one decimal place.
func percentage(n, total int) string {
	if total == 0 {
		return "0.0"
	}

	return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 1, 64)
}

// HTML renders the markdown report into a standalone HTML document.
func HTML(d *Data) ([]byte, error) {
	md, err := Markdown(d)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("convert report markdown: %w", err)
	}

	var out bytes.Buffer

	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Industrial Analytics Report</title>")
	out.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #999;padding:4px 8px}</style>")
	out.WriteString("</head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")

	return out.Bytes(), nil
}

// Filename builds a date-stamped export name such as Industrial_Report_SYNC_2025-03-01.txt.
func Filename(tag string, t time.Time, ext string) string {
	name := "Industrial_Report_"
	if tag != "" {
		name += tag + "_"
	}

	return name + t.Format("2006-01-02") + "." + strings.TrimPrefix(ext, ".")
}

// formatNumber prints the shortest representation, so 42.0 prints as 42.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
