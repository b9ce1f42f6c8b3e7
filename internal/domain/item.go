package domain

// Metadata keys attached to a WorkItem by the link resolver.
const (
	MetaTitle = "title"
	MetaCover = "cover"
)

// WorkItem is one discovered download candidate. ID is the stable
// identifier recorded in the ledger (the item's URL path); Locator is
// where resolution of the actual binary starts.
type WorkItem struct {
	ID       string
	Locator  string
	Metadata map[string]string
}

// Title returns the human-readable title from metadata, or the ID when
// none was captured.
func (w WorkItem) Title() string {
	if t, ok := w.Metadata[MetaTitle]; ok && t != "" {
		return t
	}
	return w.ID
}

// DownloadOutcome describes the terminal result of retrieving one item.
// ExpectedBytes is -1 when the server did not declare a length.
type DownloadOutcome struct {
	Item          WorkItem
	FileName      string
	BytesWritten  int64
	ExpectedBytes int64
	Status        OutcomeStatus
	Err           error
}
