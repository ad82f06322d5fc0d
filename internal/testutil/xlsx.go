// Package testutil writes small spreadsheet fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sheet is one worksheet: Rows[0] is the header.
type Sheet struct {
	Name string
	Rows [][]string
}

// WriteXLSX writes a minimal workbook. Cells that parse as floats are stored as
// numbers; everything else as inline strings; empty cells are omitted.
func WriteXLSX(path string, sheets ...Sheet) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, body string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(body))
		return err
	}

	var wb, rels, ct strings.Builder
	wb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	ct.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/>`)
	for i, s := range sheets {
		n := i + 1
		fmt.Fprintf(&wb, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, escape(s.Name), n, n)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet%d.xml"/>`, n, n)
		fmt.Fprintf(&ct, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, n)
		if err := add(fmt.Sprintf("xl/worksheets/sheet%d.xml", n), sheetXML(s.Rows)); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.Name, err)
		}
	}
	wb.WriteString(`</sheets></workbook>`)
	rels.WriteString(`</Relationships>`)
	ct.WriteString(`</Types>`)
	for name, body := range map[string]string{
		"xl/workbook.xml":            wb.String(),
		"xl/_rels/workbook.xml.rels": rels.String(),
		"[Content_Types].xml":        ct.String(),
	} {
		if err := add(name, body); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func sheetXML(rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
	for ri, row := range rows {
		fmt.Fprintf(&b, `<row r="%d">`, ri+1)
		for ci, v := range row {
			if v == "" {
				continue
			}
			ref := colName(ci) + strconv.Itoa(ri+1)
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				fmt.Fprintf(&b, `<c r="%s"><v>%s</v></c>`, ref, v)
			} else {
				fmt.Fprintf(&b, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, escape(v))
			}
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData></worksheet>`)
	return b.String()
}

// colName maps 0 to "A", 25 to "Z", 26 to "AA".
func colName(i int) string {
	s := ""
	for i++; i > 0; i = (i - 1) / 26 {
		s = string(rune('A'+(i-1)%26)) + s
	}
	return s
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// StudyRows returns a header plus n deterministic rows with the fatigue study
// layout, header cells in their spreadsheet spelling ("PVT Pre", ...).
func StudyRows(n int) [][]string {
	rows := [][]string{{"Subject", "PVT Pre", "PVT Post", "PVT Avr", "KSS Pre", "KSS Post", "SP Pre", "SP Post", "Flight Hours"}}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	for i := 0; i < n; i++ {
		// fixed pseudo-noise so every column varies and no column is a linear mix of others
		a := float64((i*37)%17) - 8
		b := float64((i*53)%13) - 6
		c := float64((i*29)%11) - 5
		d := float64((i*41)%19) - 9
		e := float64((i*23)%7) - 3
		hours := 2 + float64((i*7)%9)*0.75
		pre := 250 + 3*a + 0.5*b
		post := pre + 20 + 3*hours + 2*b - c
		kssPre := 3 + 0.3*c
		spPre := 2 + 0.2*a
		rows = append(rows, []string{
			fmt.Sprintf("S%02d", i+1),
			f(pre), f(post), f((pre+post)/2 + 0.7*c - 0.3*a),
			f(kssPre), f(kssPre + 1.5 + 0.1*b + 0.05*a + 0.08*d),
			f(spPre), f(spPre + 1 + 0.1*c - 0.05*b + 0.12*e),
			f(hours),
		})
	}
	return rows
}
