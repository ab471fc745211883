package excel

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"selectcms/domain/stats"
	"selectcms/ports"
)

// LociSheet is the sheet holding the significant loci
const LociSheet = "significant_loci"

// Exporter writes significant loci to an xlsx workbook
type Exporter struct{}

var _ ports.LociExporter = (*Exporter)(nil)

// NewExporter creates an xlsx exporter
func NewExporter() *Exporter { return &Exporter{} }

// ExportLoci writes one row per locus under the standard header. Missing
// values are left as empty cells.
func (e *Exporter) ExportLoci(path string, loci []stats.CompositeRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(LociSheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex(LociSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	header := make([]interface{}, len(stats.OutputColumns))
	for i, h := range stats.OutputColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(LociSheet, "A1", &header); err != nil {
		return err
	}

	for r, rec := range loci {
		row := make([]interface{}, 0, len(stats.OutputColumns))
		row = append(row, rec.SNP.ID, rec.SNP.Position)
		for _, v := range rec.Values() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(LociSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(LociSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
