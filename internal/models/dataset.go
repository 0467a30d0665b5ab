package models

// Column names produced by the upstream R-multiple loader.
const (
	ColumnEntryTime = "Entry Time"
	ColumnProfitR   = "Profit(R)"
	ColumnMFER      = "MFE(R)"
)

// RawRow is one untyped dataset row keyed by column name.
type RawRow map[string]any

// Dataset is a row-wise trade table as handed over by a source.
type Dataset struct {
	Source  string   `json:"source"`
	Columns []string `json:"columns"`
	Rows    []RawRow `json:"rows"`
}

// HasColumn reports whether the dataset schema declares name.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the names from required that the schema lacks, in order.
func (d *Dataset) MissingColumns(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !d.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
