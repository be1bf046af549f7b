package web

import (
	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/web/templates"
)

func batchSummaryData(res *core.Result) templates.BatchSummaryData {
	return templates.BatchSummaryData{
		Rejected: res.Rejected(),
		Created:  res.NumCreated,
		Updated:  res.NumUpdated,
		Errors:   res.Errors,
	}
}

// chainEntries converts a chain view into the employee line and its
// ancestors, nearest manager first.
func chainEntries(v *core.ChainView) (templates.ChainEntry, []templates.ChainEntry) {
	chain := make([]templates.ChainEntry, len(v.Chain))
	for i, m := range v.Chain {
		chain[i] = templates.ChainEntry{Name: m.Name, Email: m.Email}
	}
	return templates.ChainEntry{Name: v.Employee.Name, Email: v.Employee.Email}, chain
}
