package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/tenderflow/pkg/models"
)

const (
	summarySheet = "Summary"
	// dateStyle indexes the cellXfs entry carrying the built-in
	// "m/d/yy h:mm" number format (id 22)
	dateStyle = 1

	nsMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	xmlHeader       = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	sheetBufferSize = 64 * 1024
)

// excelEpoch is day zero of the 1900 date system as Excel counts it. Serials
// are only valid from 1900-03-01 on.
var (
	excelEpoch     = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	excelMinSerial = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)
)

// SheetName returns the worksheet name of the batch with the given ordinal.
func SheetName(ordinal int) string {
	return fmt.Sprintf("Batch_%d", ordinal)
}

// workbookSink streams an xlsx package: every batch becomes a worksheet part
// that is deflated into the archive as soon as it is written. Only sheet
// names are retained until Finish writes the Summary sheet and the package
// parts that index them.
type workbookSink struct {
	zw     *zip.Writer
	buf    *bufio.Writer
	sheets []string
}

func newWorkbookSink(w io.Writer) (*workbookSink, error) {
	return &workbookSink{
		zw:  zip.NewWriter(w),
		buf: bufio.NewWriterSize(io.Discard, sheetBufferSize),
	}, nil
}

func (s *workbookSink) WriteBatch(batch models.Batch) error {
	name := SheetName(batch.Ordinal)
	if err := s.beginSheet(name); err != nil {
		return err
	}

	header := make([]cell, len(models.RecordSchema))
	for i, f := range models.RecordSchema {
		header[i] = textCell(f.Name)
	}
	if err := s.writeRow(1, header); err != nil {
		return err
	}

	row := make([]cell, len(models.RecordSchema))
	for i, r := range batch.Records {
		row[0] = textCell(r.ID)
		row[1] = textCell(r.Organization)
		row[2] = textCell(r.Category)
		row[3] = textCell(r.Location)
		row[4] = numberCell(r.Value)
		row[5] = dateCell(r.Deadline)
		row[6] = textCell(r.Description)
		row[7] = textCell(r.Link)
		if err := s.writeRow(i+2, row); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", i+2, name, err)
		}
	}
	return s.endSheet()
}

func (s *workbookSink) Finish(sum Summary) error {
	if err := s.beginSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]cell{
		{textCell("Metric"), textCell("Value")},
		{textCell("Total Batches"), numberCell(float64(sum.Batches))},
		{textCell("Total Records"), numberCell(float64(sum.Records))},
		{textCell("Export Date"), textCell(sum.ExportedAt.Format(models.TimestampLayout))},
	}
	for i, row := range rows {
		if err := s.writeRow(i+1, row); err != nil {
			return err
		}
	}
	if err := s.endSheet(); err != nil {
		return err
	}

	parts := []struct {
		name string
		body func(*bufio.Writer) error
	}{
		{"[Content_Types].xml", s.writeContentTypes},
		{"_rels/.rels", writePackageRels},
		{"xl/workbook.xml", s.writeWorkbook},
		{"xl/_rels/workbook.xml.rels", s.writeWorkbookRels},
		{"xl/styles.xml", writeStyles},
	}
	for _, p := range parts {
		w, err := s.zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		s.buf.Reset(w)
		if err := p.body(s.buf); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
		if err := s.buf.Flush(); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := s.zw.Close(); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (s *workbookSink) beginSheet(name string) error {
	s.sheets = append(s.sheets, name)
	part := fmt.Sprintf("xl/worksheets/sheet%d.xml", len(s.sheets))
	w, err := s.zw.Create(part)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", name, err)
	}
	s.buf.Reset(w)
	_, err = s.buf.WriteString(xmlHeader + `<worksheet xmlns="` + nsMain + `"><sheetData>`)
	return err
}

func (s *workbookSink) endSheet() error {
	if _, err := s.buf.WriteString(`</sheetData></worksheet>`); err != nil {
		return err
	}
	return s.buf.Flush()
}

type cellKind int

const (
	cellText cellKind = iota
	cellNumber
	cellDate
)

type cell struct {
	kind cellKind
	text string
	num  float64
}

func textCell(v string) cell    { return cell{kind: cellText, text: v} }
func numberCell(v float64) cell { return cell{kind: cellNumber, num: v} }

// dateCell stores t as an Excel serial. Instants the 1900 date system cannot
// represent fall back to text.
func dateCell(t time.Time) cell {
	t = models.Naive(t)
	if t.Before(excelMinSerial) {
		return textCell(t.Format(models.TimestampLayout))
	}
	secs := t.Unix() - excelEpoch.Unix()
	serial := float64(secs)/86400 + float64(t.Nanosecond())/(86400*1e9)
	return cell{kind: cellDate, num: serial}
}

func (s *workbookSink) writeRow(row int, cells []cell) error {
	w := s.buf
	w.WriteString(`<row r="`)
	w.WriteString(strconv.Itoa(row))
	w.WriteString(`">`)
	for col, c := range cells {
		ref, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		w.WriteString(`<c r="`)
		w.WriteString(ref)
		switch c.kind {
		case cellText:
			w.WriteString(`" t="inlineStr"><is><t xml:space="preserve">`)
			if err := xml.EscapeText(w, []byte(c.text)); err != nil {
				return err
			}
			w.WriteString(`</t></is></c>`)
		case cellNumber, cellDate:
			if c.kind == cellDate {
				w.WriteString(`" s="` + strconv.Itoa(dateStyle))
			}
			w.WriteString(`"><v>`)
			w.WriteString(strconv.FormatFloat(c.num, 'f', -1, 64))
			w.WriteString(`</v></c>`)
		}
	}
	_, err := w.WriteString(`</row>`)
	return err
}

func (s *workbookSink) writeContentTypes(b *bufio.Writer) error {
	b.WriteString(xmlHeader + `<Types xmlns="` + nsContentTypes + `">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>`)
	b.WriteString(`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>`)
	for i := range s.sheets {
		fmt.Fprintf(b, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, i+1)
	}
	_, err := b.WriteString(`</Types>`)
	return err
}

func writePackageRels(w *bufio.Writer) error {
	_, err := w.WriteString(xmlHeader+`<Relationships xmlns="`+nsPackageRels+`">`+
		`<Relationship Id="rId1" Type="`+nsRelationships+`/officeDocument" Target="xl/workbook.xml"/>`+
		`</Relationships>`)
	return err
}

func (s *workbookSink) writeWorkbook(b *bufio.Writer) error {
	b.WriteString(xmlHeader + `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRelationships + `"><sheets>`)
	for i, name := range s.sheets {
		b.WriteString(`<sheet name="`)
		if err := xml.EscapeText(b, []byte(name)); err != nil {
			return err
		}
		fmt.Fprintf(b, `" sheetId="%d" r:id="rId%d"/>`, i+1, i+1)
	}
	_, err := b.WriteString(`</sheets></workbook>`)
	return err
}

func (s *workbookSink) writeWorkbookRels(b *bufio.Writer) error {
	b.WriteString(xmlHeader + `<Relationships xmlns="` + nsPackageRels + `">`)
	for i := range s.sheets {
		fmt.Fprintf(b, `<Relationship Id="rId%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`,
			i+1, nsRelationships, i+1)
	}
	fmt.Fprintf(b, `<Relationship Id="rId%d" Type="%s/styles" Target="styles.xml"/>`, len(s.sheets)+1, nsRelationships)
	_, err := b.WriteString(`</Relationships>`)
	return err
}

func writeStyles(w *bufio.Writer) error {
	_, err := w.WriteString(xmlHeader+`<styleSheet xmlns="`+nsMain+`">`+
		`<fonts count="1"><font><sz val="11"/><name val="Calibri"/></font></fonts>`+
		`<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>`+
		`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>`+
		`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>`+
		`<cellXfs count="2"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/>`+
		`<xf numFmtId="22" fontId="0" fillId="0" borderId="0" xfId="0" applyNumberFormat="1"/></cellXfs>`+
		`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>`+
		`</styleSheet>`)
	return err
}
