package export

// Table defines tabular export content rendered by the exporters.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}
