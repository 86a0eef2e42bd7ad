package templates

// ReportView is the data behind a rendered report page.
type ReportView struct {
	Report      string
	StoreName   string
	ProductName string
	Columns     []string
	Rows        [][]string
}
