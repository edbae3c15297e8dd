package domain

// BlockRange is an inclusive range of block numbers.
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Len returns the number of blocks covered by the range.
func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// ScanResult holds the most recent LabCreated events, oldest first.
type ScanResult struct {
	Logs         []LabCreated `json:"logs"`
	Success      bool         `json:"success"`
	EndpointUsed string       `json:"endpointUsed"`
}
