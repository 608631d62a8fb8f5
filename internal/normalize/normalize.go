// Package normalize turns upstream report rows, whatever generation of the report
// layout they come from, into canonical rows.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/period"
	"mintfigures/lib/textutil"
)

const (
	report_normalizer_unknown_shape        = "normalizer.unknown-shape"
	report_normalizer_bad_quantity         = "normalizer.bad-quantity"
	report_normalizer_unknown_denomination = "normalizer.unknown-denomination"
	report_normalizer_empty_name           = "normalizer.empty-name"
)

// CanonicalRow is a single quantity observation from a report.
type CanonicalRow struct {
	ItemID      string
	ItemName    string
	ProgramName string
	Quantity    int64
	Period      period.Period

	Shape Shape
	// Group is the design for by-design rows and the mint for by-denomination and
	// by-mint rows, empty for item sales.
	Group string
	Mint  string
	// NoData marks a design that is listed without any mint quantity.
	NoData bool
}

type Normalizer struct {
	tel telemetry.API
}

func New(tel telemetry.API) Normalizer {
	assert.NotNil(tel)
	return Normalizer{tel: telemetry.NewScopedAPI("normalize", tel)}
}

// Normalize translates every row of one report. Rows that cannot be translated
// are reported and skipped, they never fail the report. program is the
// production program the report belongs to, item sales rows carry their own.
func (n Normalizer) Normalize(rows []RawRow, p period.Period, program string) []CanonicalRow {
	var out []CanonicalRow
	for i, row := range rows {
		switch shape := DetectShape(row); shape {
		case ShapeByDesign:
			out = n.byDesign(out, row, p, program)
		case ShapeByDenomination:
			out = n.byDenomination(out, row, p, program)
		case ShapeByMint:
			out = n.byMint(out, row, p, program)
		case ShapeItemSales, ShapeAltItemSales:
			out = n.itemSales(out, row, shape, p)
		default:
			n.tel.ReportWarning(
				report_normalizer_unknown_shape,
				fmt.Errorf("unknown row layout at %d/%d", i+1, len(rows)),
				p.Key(),
				strings.Join(row.Columns(), "|"),
			)
		}
	}
	return out
}

func (n Normalizer) mintage(p period.Period, label, value string) (int64, bool) {
	q, err := ParseMintage(value)
	if err != nil {
		n.tel.ReportWarning(report_normalizer_bad_quantity, err, p.Key(), label)
		return 0, false
	}
	return q, true
}

func isDesignSentinel(design string, p period.Period) bool {
	switch strings.TrimSpace(design) {
	case "", "Total", "Grand Total:", strconv.Itoa(p.Year):
		return true
	}
	return false
}

func (n Normalizer) byDesign(out []CanonicalRow, row RawRow, p period.Period, program string) []CanonicalRow {
	raw, _ := row.First(designColumns...)
	if isDesignSentinel(raw, p) {
		return out
	}
	design := normalizeDesign(raw)

	listed := false
	for _, mint := range Mints {
		value := strings.TrimSpace(row.Value(mint))
		if value == "" {
			continue
		}
		listed = true
		q, ok := n.mintage(p, design, value)
		if !ok {
			continue
		}
		out = append(out, CanonicalRow{
			ItemName:    design,
			ProgramName: program,
			Quantity:    q,
			Period:      p,
			Shape:       ShapeByDesign,
			Group:       design,
			Mint:        mint,
		})
	}
	if !listed {
		out = append(out, CanonicalRow{
			ItemName:    design,
			ProgramName: program,
			Period:      p,
			Shape:       ShapeByDesign,
			Group:       design,
			NoData:      true,
		})
	}
	return out
}

func (n Normalizer) unknownDenomination(p period.Period, label string) {
	closest, similarity := textutil.Closest(label, knownDenominations)
	n.tel.ReportWarning(
		report_normalizer_unknown_denomination,
		fmt.Errorf("unknown denomination %q, closest known is %q (%.2f)", label, closest, similarity),
		p.Key(),
	)
}

func (n Normalizer) byDenomination(out []CanonicalRow, row RawRow, p period.Period, program string) []CanonicalRow {
	label := strings.TrimSpace(row.Value(colDenomination))
	if label == "" || label == "Total" {
		return out
	}
	denomination, ok := resolveDenomination(label)
	if !ok {
		n.unknownDenomination(p, label)
		denomination = label
	}

	for _, mint := range Mints {
		value := strings.TrimSpace(row.Value(mint))
		if value == "" {
			continue
		}
		q, ok := n.mintage(p, denomination, value)
		if !ok {
			continue
		}
		out = append(out, CanonicalRow{
			ItemName:    denomination,
			ProgramName: program,
			Quantity:    q,
			Period:      p,
			Shape:       ShapeByDenomination,
			Group:       mint,
			Mint:        mint,
		})
	}
	return out
}

func isMintKey(column string) bool {
	for _, c := range mintKeyColumns {
		if c == column {
			return true
		}
	}
	return column == colMintTotal
}

func (n Normalizer) byMint(out []CanonicalRow, row RawRow, p period.Period, program string) []CanonicalRow {
	mint, _ := row.First(mintKeyColumns...)
	mint = strings.TrimSpace(mint)
	known := false
	for _, m := range Mints {
		if m == mint {
			known = true
		}
	}
	if !known {
		n.tel.ReportDebug("skip by-mint row", "period", p.Key(), "mint", mint)
		return out
	}

	for _, column := range row.Columns() {
		if isMintKey(column) {
			continue
		}
		denomination, ok := formatDenomination(column)
		if !ok {
			n.unknownDenomination(p, column)
			denomination = strings.TrimSpace(column)
		}
		q, ok := n.mintage(p, denomination, row.Value(column))
		if !ok {
			continue
		}
		out = append(out, CanonicalRow{
			ItemName:    denomination,
			ProgramName: program,
			Quantity:    q,
			Period:      p,
			Shape:       ShapeByMint,
			Group:       mint,
			Mint:        mint,
		})
	}
	return out
}

func (n Normalizer) itemSales(out []CanonicalRow, row RawRow, shape Shape, p period.Period) []CanonicalRow {
	var id, name, quantity, program string
	if shape == ShapeItemSales {
		id = row.Value(colItem)
		name = row.Value(colItemDesc)
		quantity, _ = row.First(colAdjNetDemand, colAdjNetDemand2)
		program, _ = row.First(colProgramName, colMintBlank, colProgramNameBOM)
	} else {
		id = row.Value(colProgramItem)
		name = row.Value(colProduct)
		quantity = row.Value(colSalesToDate)
		program = row.Value(colProgram)
	}

	sanitized := SanitizeName(name)
	if sanitized == "" {
		n.tel.ReportWarning(report_normalizer_empty_name, fmt.Errorf("item %q has no usable name", id), p.Key())
		return out
	}
	q, err := ParseCount(quantity)
	if err != nil {
		n.tel.ReportWarning(report_normalizer_bad_quantity, err, p.Key(), sanitized)
		return out
	}

	return append(out, CanonicalRow{
		ItemID:      strings.TrimSpace(id),
		ItemName:    sanitized,
		ProgramName: SanitizeProgram(program),
		Quantity:    q,
		Period:      p,
		Shape:       shape,
	})
}
