package monitor

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is pushed to /diag clients when something about the output
// changes state.
type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

func dropped(seq uint64, err error) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     "FRAME.DROPPED",
		Summary:  "Frame transmit failed",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"SPI port busy or unplugged",
			"frame larger than the driver's transfer limit",
		},
		SuggestedFixes: []string{
			"check spi.port and wiring",
			"lower pixels or use scheme 3x",
		},
		Evidence: map[string]any{"seq": seq},
	}
}

func recovered(seq uint64, failed uint64) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     "FRAME.RECOVERED",
		Summary:  "Transmit recovered",
		Evidence: map[string]any{"seq": seq, "failed": failed},
	}
}
