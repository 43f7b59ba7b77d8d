package models

const (
	DataSourceManual      = "manual"
	DataSourceFile        = "file"
	DataSourceCSV         = "csv"
	DataSourceOpenLibrary = "openlibrary"
	DataSourceAmazon      = "amazon"
	DataSourceOllama      = "ollama"
	DataSourceFilepath    = "filepath"
)

// Lower priority means that we respect it more than higher priority.
const (
	DataSourceManualPriority = iota
	DataSourceFilePriority
	DataSourceCSVPriority
	DataSourceOpenLibraryPriority
	DataSourceAmazonPriority
	DataSourceOllamaPriority
	DataSourceFilepathPriority
)

var DataSourcePriority = map[string]int{
	DataSourceManual:      DataSourceManualPriority,
	DataSourceFile:        DataSourceFilePriority,
	DataSourceCSV:         DataSourceCSVPriority,
	DataSourceOpenLibrary: DataSourceOpenLibraryPriority,
	DataSourceAmazon:      DataSourceAmazonPriority,
	DataSourceOllama:      DataSourceOllamaPriority,
	DataSourceFilepath:    DataSourceFilepathPriority,
}

// Outranks reports whether data from source a should replace data that came from source b.
// Unknown sources rank below everything.
func Outranks(a, b string) bool {
	pa, ok := DataSourcePriority[a]
	if !ok {
		return false
	}
	pb, ok := DataSourcePriority[b]
	if !ok {
		return true
	}
	return pa < pb
}
