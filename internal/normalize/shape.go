package normalize

// Shape is one of the row layouts upstream has used over the years.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeByDesign has one design per row and one column per mint.
	ShapeByDesign
	// ShapeByDenomination has one denomination per row and one column per mint.
	ShapeByDenomination
	// ShapeByMint has one mint per row and one column per denomination.
	ShapeByMint
	// ShapeItemSales is a cumulative sales row.
	ShapeItemSales
	// ShapeAltItemSales is the cumulative sales row used by newer reports.
	ShapeAltItemSales
)

func (s Shape) String() string {
	switch s {
	case ShapeByDesign:
		return "by-design"
	case ShapeByDenomination:
		return "by-denomination"
	case ShapeByMint:
		return "by-mint"
	case ShapeItemSales:
		return "item-sales"
	case ShapeAltItemSales:
		return "alt-item-sales"
	}
	return "unknown"
}

const (
	colDesign             = "Design"
	colPresident          = "President"
	colAWQQuarter         = "AWQ Quarter"
	colSemiquincentennial = "Semiquincentennial Quarter"
	colDenomination       = "Denomination"
	colMintBlank          = ""
	colMintSpaced         = "Denomination/ Mint"
	colMint               = "Denomination/Mint"
	colMintTotal          = "Total:"

	colProgramName    = "Program Name"
	colProgramNameBOM = "\ufeffProgram Name"
	colItem           = "Item"
	colItemDesc       = "Item Description"
	colAdjNetDemand   = "Adj. Net Demand"
	colAdjNetDemand2  = "Adj Net Demand"
	colSalesValidDate = "Date Sales Report is Valid"

	colProgram         = "Program"
	colProgramItem     = "Program Item"
	colProduct         = "Product"
	colSalesToDate     = "Sales to Date"
	colSalesReportDate = "Sales Reporting Date"
)

var designColumns = []string{colDesign, colPresident, colAWQQuarter, colSemiquincentennial}

var mintKeyColumns = []string{colMintSpaced, colMint, colMintBlank}

// Mints are the facilities production reports are broken down by, in output order.
var Mints = []string{"Philadelphia", "Denver"}

// DetectShape finds the layout of a row from the columns it has, checking the
// layouts in a fixed priority order.
func DetectShape(row RawRow) Shape {
	for _, c := range designColumns {
		if row.Has(c) {
			return ShapeByDesign
		}
	}
	if row.Has(colDenomination) {
		return ShapeByDenomination
	}
	if row.Has(colMintSpaced) || row.Has(colMint) {
		return ShapeByMint
	}
	// item sales reports sometimes lose the program name header, leaving a blank
	// column that must not be mistaken for the by-mint key
	if row.Has(colMintBlank) && !row.Has(colItemDesc) {
		return ShapeByMint
	}
	if row.Has(colItemDesc) {
		return ShapeItemSales
	}
	if row.Has(colProgramItem) || row.Has(colSalesToDate) {
		return ShapeAltItemSales
	}
	return ShapeUnknown
}
