package pipeline

// Status is the terminal state of a page run.
type Status string

const (
	StatusSuccess        Status = "Success"
	StatusPartialSuccess Status = "Partial Success"
	StatusFailure        Status = "Failure"
	StatusSkipped        Status = "Skipped"
)

// Progress reports one viewport position.
type Progress struct {
	Scroll        int
	ScrollY       float64
	ContentHeight float64
	Units         int
	Pending       int
}

// Stats counts the work of a scroll pass.
type Stats struct {
	Scrolls int
	// Dispatches counts viewport positions that sent work to the backend.
	Dispatches int
	Failures   int
	Units      int
	// Pending units were never in view, usually because they are hidden.
	Pending    int
	Attributes int
	NewUnits   int
}

// PageResult contains structured outputs from RunPage.
type PageResult struct {
	Status     Status
	OutputPath string
	Language   string
	Rule       string
	Stats
}

func statusFromStats(s Stats) Status {
	switch {
	case s.Failures == 0:
		return StatusSuccess
	case s.Failures < s.Dispatches:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}
