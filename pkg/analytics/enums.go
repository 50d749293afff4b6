package analytics

// ConfidenceTier reflects how much history exists and gates which analyses run.
type ConfidenceTier uint8

const (
	ConfidenceColdStart ConfidenceTier = iota
	ConfidenceDeveloping
	ConfidencePersonalized
)

var confidenceNames = []string{"cold_start", "developing", "personalized"}

func (c ConfidenceTier) String() string {
	if int(c) < len(confidenceNames) {
		return confidenceNames[c]
	}
	return "invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (c ConfidenceTier) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ConfidenceTier) UnmarshalText(text []byte) error {
	i, err := parseEnum("confidence tier", confidenceNames, text)
	if err != nil {
		return err
	}
	*c = ConfidenceTier(i)
	return nil
}

// DeviationSignal classifies how abnormal the latest cycle is. Values are ordered
// by severity, so comparisons and Escalate are meaningful.
type DeviationSignal uint8

const (
	DeviationNone DeviationSignal = iota
	DeviationMild
	DeviationModerate
	DeviationSevere
)

var deviationNames = []string{"none", "mild", "moderate", "severe"}

func (d DeviationSignal) String() string {
	if int(d) < len(deviationNames) {
		return deviationNames[d]
	}
	return "invalid"
}

// Escalate returns the signal one severity step higher, capped at severe.
func (d DeviationSignal) Escalate() DeviationSignal {
	if d >= DeviationSevere {
		return DeviationSevere
	}
	return d + 1
}

// Steps returns the number of severity steps above none.
func (d DeviationSignal) Steps() int { return int(d) }

// MarshalText implements encoding.TextMarshaler.
func (d DeviationSignal) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DeviationSignal) UnmarshalText(text []byte) error {
	i, err := parseEnum("deviation signal", deviationNames, text)
	if err != nil {
		return err
	}
	*d = DeviationSignal(i)
	return nil
}

// Verdict is the outlier scorer's classification of the latest cycle.
type Verdict uint8

const (
	VerdictNormal Verdict = iota
	VerdictAnomaly
)

var verdictNames = []string{"normal", "anomaly"}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	i, err := parseEnum("verdict", verdictNames, text)
	if err != nil {
		return err
	}
	*v = Verdict(i)
	return nil
}

// HeavyFlowRisk is derived from the share of high-intensity flow days.
type HeavyFlowRisk uint8

const (
	HeavyFlowUnknown HeavyFlowRisk = iota
	HeavyFlowLow
	HeavyFlowModerate
	HeavyFlowHigh
)

var heavyFlowNames = []string{"unknown", "low", "moderate", "high"}

func (r HeavyFlowRisk) String() string {
	if int(r) < len(heavyFlowNames) {
		return heavyFlowNames[r]
	}
	return "invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (r HeavyFlowRisk) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *HeavyFlowRisk) UnmarshalText(text []byte) error {
	i, err := parseEnum("heavy flow risk", heavyFlowNames, text)
	if err != nil {
		return err
	}
	*r = HeavyFlowRisk(i)
	return nil
}
