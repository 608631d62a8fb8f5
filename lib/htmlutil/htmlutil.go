package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText returns the printable text of a node with surrounding whitespace
// trimmed and inner runs of whitespace collapsed to one space.
func CleanText(node *html.Node) string {
	text := GetText(node)
	text = innerWhitespace.ReplaceAllString(text, " ")
	text = removeNonPrintable(text)
	return strings.Trim(text, " \t\n")
}

// Table is the text content of an html table.
type Table struct {
	// Headers is the text of the header cells, empty when the table has no header row.
	Headers []string
	Rows    [][]string
}

// ParseTable reads the first table in sel. Header cells are taken from `thead th`,
// or the `th` cells of the first row when there is no thead. Rows without any `td`
// are skipped.
func ParseTable(sel *goquery.Selection) (Table, bool) {
	table := sel
	if !sel.Is("table") {
		table = sel.Find("table")
	}
	table = table.First()
	if table.Length() == 0 {
		return Table{}, false
	}

	var out Table
	headerCells := table.Find("thead th")
	if headerCells.Length() == 0 {
		headerCells = table.Find("tr").First().Find("th")
	}
	for _, n := range headerCells.Nodes {
		out.Headers = append(out.Headers, CleanText(n))
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, cells.Length())
		for i, n := range cells.Nodes {
			row[i] = CleanText(n)
		}
		out.Rows = append(out.Rows, row)
	})

	return out, true
}

// OptionValues returns the `value` attribute of every option under sel, in document order.
func OptionValues(sel *goquery.Selection) []string {
	var values []string
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		values = append(values, strings.TrimSpace(opt.AttrOr("value", "")))
	})
	return values
}
