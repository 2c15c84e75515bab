package analyzer

// ProgressSink receives stage updates from a running analysis. Injected by
// the caller; the pipeline itself holds no shared progress state.
type ProgressSink interface {
	Report(stage string, percent int, message string)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Report(string, int, string) {}
