package identity

type ErrorSample struct {
	RecordID int64       `json:"record_id"`
	Kind     OutcomeKind `json:"kind"`
	TargetID string      `json:"target_id,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Raw      string      `json:"raw,omitempty"`
	Trace    string      `json:"trace,omitempty"`
}

type Orphan struct {
	RecordID int64  `json:"record_id"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"`
}

type RunReport struct {
	Success      bool                `json:"success"`
	Strategy     Strategy            `json:"strategy"`
	TotalRecords int                 `json:"total_records"`
	Processed    int                 `json:"processed"`
	Migrated     int                 `json:"migrated"`
	Skipped      int                 `json:"skipped"`
	Failed       int                 `json:"failed"`
	ErrorCount   int                 `json:"error_count"`
	OrphanCount  int                 `json:"orphan_count"`
	ByKind       map[OutcomeKind]int `json:"by_kind,omitempty"`
	SampleErrors []ErrorSample       `json:"sample_errors"`
	Orphans      []Orphan            `json:"orphans"`
	FatalError   string              `json:"fatal_error,omitempty"`
	Cancelled    bool                `json:"cancelled,omitempty"`

	maxSamples int
}

func NewRunReport(strategy Strategy, maxSamples int) *RunReport {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &RunReport{
		Strategy:     strategy,
		ByKind:       make(map[OutcomeKind]int),
		SampleErrors: make([]ErrorSample, 0),
		Orphans:      make([]Orphan, 0),
		maxSamples:   maxSamples,
	}
}

// Record tallies one terminal outcome. Samples and orphans are capped at maxSamples;
// the counters are not.
func (r *RunReport) Record(o Outcome) {
	r.Processed++
	r.ByKind[o.Kind]++

	switch {
	case o.Kind == OutcomeMigrated:
		r.Migrated++
	case o.Kind.IsSkip():
		r.Skipped++
	default:
		r.Failed++
	}

	if o.Kind == OutcomeLinkFailed {
		r.OrphanCount++
		if len(r.Orphans) < r.maxSamples {
			r.Orphans = append(r.Orphans, Orphan{
				RecordID: o.RecordID,
				TargetID: o.TargetID,
				Reason:   o.Reason,
			})
		}
	}

	if !o.Kind.IsError() {
		return
	}
	r.ErrorCount++
	if len(r.SampleErrors) < r.maxSamples {
		r.SampleErrors = append(r.SampleErrors, ErrorSample{
			RecordID: o.RecordID,
			Kind:     o.Kind,
			TargetID: o.TargetID,
			Reason:   o.Reason,
			Raw:      o.Raw,
			Trace:    o.Trace,
		})
	}
}
