package templates

// BatchSummaryData is the view model for BatchSummary.
type BatchSummaryData struct {
	Rejected bool
	Created  int
	Updated  int
	Errors   []string
}

// ChainEntry is one employee line in a ChainList.
type ChainEntry struct {
	Name  string
	Email string
}

// DisplayName is "Name <email>", or just the email for unnamed records.
func (e ChainEntry) DisplayName() string {
	if e.Name == "" {
		return e.Email
	}
	return e.Name + " <" + e.Email + ">"
}
