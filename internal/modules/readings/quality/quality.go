// Package quality labels readings clean or dirty against WHO drinking-water
// guideline thresholds.
package quality

import (
	"fmt"
	"math"
	"strconv"
)

const (
	LabelClean = "clean"
	LabelDirty = "dirty"

	LevelExcellent = "EXCELLENT"
	LevelGood      = "GOOD"
	LevelFair      = "FAIR"
	LevelPoor      = "POOR"

	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Thresholds are the clean and borderline bounds. NTU and TDS above the
// borderline maximum are always a violation.
type Thresholds struct {
	PHMin            float64
	PHMax            float64
	NTUCleanMax      float64
	NTUBorderlineMax float64
	TDSCleanMax      float64
	TDSBorderlineMax float64
}

// DefaultThresholds: pH 6.5-8.5, turbidity 1 NTU (5 borderline),
// TDS 500 mg/L (1000 borderline).
var DefaultThresholds = Thresholds{
	PHMin:            6.5,
	PHMax:            8.5,
	NTUCleanMax:      1.0,
	NTUBorderlineMax: 5.0,
	TDSCleanMax:      500,
	TDSBorderlineMax: 1000,
}

type Margins struct {
	PH  float64 `json:"ph"`
	NTU float64 `json:"ntu"`
	TDS float64 `json:"tds"`
}

type Assessment struct {
	Label           string   `json:"label"`
	Clean           bool     `json:"is_clean"`
	Reasons         []string `json:"reasons"`
	Confidence      float64  `json:"confidence"`
	SafeProbability float64  `json:"safe_probability"`
	Level           string   `json:"quality_level"`
	Risk            string   `json:"risk_level"`
	Margins         Margins  `json:"margins"`
}

type Labeler struct {
	thresholds      Thresholds
	allowBorderline bool
}

// NewLabeler returns a labeler using DefaultThresholds. With allowBorderline
// false, borderline turbidity or TDS makes a reading dirty.
func NewLabeler(allowBorderline bool) *Labeler {
	return &Labeler{thresholds: DefaultThresholds, allowBorderline: allowBorderline}
}

func NewLabelerWithThresholds(t Thresholds, allowBorderline bool) *Labeler {
	return &Labeler{thresholds: t, allowBorderline: allowBorderline}
}

func (l *Labeler) Assess(ph, ntu, tds float64) Assessment {
	t := l.thresholds
	var reasons []string
	violation := false

	if ph < t.PHMin || ph > t.PHMax {
		op, bound := "<", t.PHMin
		if ph > t.PHMax {
			op, bound = ">", t.PHMax
		}
		reasons = append(reasons, fmt.Sprintf("pH out of range: %s (%s %s)", num(ph), op, num(bound)))
		violation = true
	}

	if ntu > t.NTUCleanMax {
		if ntu <= t.NTUBorderlineMax {
			reasons = append(reasons, fmt.Sprintf("Turbidity borderline: %s NTU (> %s)", num(ntu), num(t.NTUCleanMax)))
			violation = violation || !l.allowBorderline
		} else {
			reasons = append(reasons, fmt.Sprintf("Turbidity high: %s NTU (> %s)", num(ntu), num(t.NTUBorderlineMax)))
			violation = true
		}
	}

	if tds > t.TDSCleanMax {
		if tds <= t.TDSBorderlineMax {
			reasons = append(reasons, fmt.Sprintf("TDS borderline: %s mg/L (> %s)", num(tds), num(t.TDSCleanMax)))
			violation = violation || !l.allowBorderline
		} else {
			reasons = append(reasons, fmt.Sprintf("TDS high: %s mg/L (> %s)", num(tds), num(t.TDSBorderlineMax)))
			violation = true
		}
	}

	m := l.margins(ph, ntu, tds)
	a := Assessment{
		Clean: !violation,
		Margins: Margins{
			PH:  round3(m.PH),
			NTU: round3(m.NTU),
			TDS: round3(m.TDS),
		},
	}

	if a.Clean {
		a.Label = LabelClean
		a.Confidence = round3(min(m.PH, m.NTU, m.TDS))
		// clean readings never score below 50
		a.SafeProbability = math.Round(max(50, a.Confidence*100)*10) / 10
		a.Risk = RiskLow
		if a.Confidence < 0.5 {
			a.Risk = RiskMedium
		}
		// relaxed mode keeps borderline notes alongside the compliance line
		a.Reasons = append([]string{
			fmt.Sprintf("Compliant: pH=%s, TDS=%s mg/L, NTU=%s", num(ph), num(tds), num(ntu)),
		}, reasons...)
		switch {
		case a.SafeProbability >= 80:
			a.Level = LevelExcellent
		case a.SafeProbability >= 65:
			a.Level = LevelGood
		default:
			a.Level = LevelFair
		}
		return a
	}

	a.Label = LabelDirty
	a.Risk = RiskHigh
	a.Level = LevelPoor
	a.Reasons = reasons
	return a
}

// margins are normalized distances into the clean region, 1 far inside,
// 0 at or beyond a threshold.
func (l *Labeler) margins(ph, ntu, tds float64) Margins {
	t := l.thresholds
	var m Margins
	if ph >= t.PHMin && ph <= t.PHMax {
		m.PH = clamp(min(ph-t.PHMin, t.PHMax-ph) / 1.0)
	}
	if ntu <= t.NTUCleanMax {
		m.NTU = clamp((t.NTUCleanMax - ntu) / max(t.NTUCleanMax, 1.0))
	}
	if tds <= t.TDSCleanMax {
		m.TDS = clamp((t.TDSCleanMax - tds) / max(t.TDSCleanMax, 1.0))
	}
	return m
}

func clamp(x float64) float64 {
	return max(0, min(1, x))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
