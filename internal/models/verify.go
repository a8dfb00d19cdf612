package models

// ColumnReport is the outcome of sampling a table against a required column list
type ColumnReport struct {
	Table   string   `json:"table"`
	NoData  bool     `json:"no_data"`
	Present []string `json:"present,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

// OK reports a sampled row carrying every required column
func (r ColumnReport) OK() bool {
	return !r.NoData && len(r.Missing) == 0
}

// TableStatus is the existence check result for one table
type TableStatus struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Rows   int64  `json:"rows"`
	Error  string `json:"error,omitempty"`
}
