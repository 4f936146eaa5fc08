// Package report renders the diagnostic images of a scan session and binds
// them into a single PDF.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// DefaultDPI is the resolution pages are rasterized at.
const DefaultDPI = 200.0

// Metadata is written into the document information dictionary.
type Metadata struct {
	Title   string
	Author  string
	Subject string
	Creator string
}

// DefaultMetadata returns the metadata of legacy reports.
func DefaultMetadata() Metadata {
	return Metadata{
		Title:   "OMaRScan processed pages",
		Author:  "omrscan",
		Subject: "Marked Bubble Sheets",
		Creator: ProgramName,
	}
}

// Document is a PDF with one full-bleed image per page.
type Document struct {
	pdf   *gofpdf.Fpdf
	dpi   float64
	pages int
}

// NewDocument starts an empty report. Page sizes derive from image pixels at
// dpi.
func NewDocument(meta Metadata, dpi float64, created time.Time) *Document {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(meta.Title, false)
	pdf.SetAuthor(meta.Author, false)
	pdf.SetSubject(meta.Subject, false)
	pdf.SetCreator(meta.Creator, false)
	pdf.SetCreationDate(created)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &Document{pdf: pdf, dpi: dpi}
}

func (d *Document) pxToPt(px int) float64 {
	return float64(px) * 72 / d.dpi
}

// AddPage appends img as a new page.
func (d *Document) AddPage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode report page %d: %w", d.pages+1, err)
	}
	d.pages++
	name := fmt.Sprintf("page-%04d", d.pages)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)

	b := img.Bounds()
	w, h := d.pxToPt(b.Dx()), d.pxToPt(b.Dy())
	d.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	d.pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	return d.pdf.Error()
}

// Pages returns the number of pages added so far.
func (d *Document) Pages() int { return d.pages }

// Write renders the document to w.
func (d *Document) Write(w io.Writer) error {
	return d.pdf.Output(w)
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: report path chosen by the user
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := d.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
