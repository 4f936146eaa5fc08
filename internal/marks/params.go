// Package marks finds the filled bubbles of an aligned page by combining
// per-bubble intensity sampling with blob extraction.
package marks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// UndersizedPolicy decides what happens to a sampled bubble whose matching
// blob is below the minimum radius.
type UndersizedPolicy int

const (
	// UndersizedKeep leaves the bubble a candidate, so the fallback still
	// accepts it.
	UndersizedKeep UndersizedPolicy = iota
	// UndersizedReject drops the bubble.
	UndersizedReject
)

func (p UndersizedPolicy) String() string {
	if p == UndersizedReject {
		return "reject"
	}
	return "keep"
}

// ParseUndersizedPolicy parses "keep" or "reject".
func ParseUndersizedPolicy(s string) (UndersizedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return UndersizedKeep, nil
	case "reject":
		return UndersizedReject, nil
	default:
		return UndersizedKeep, fmt.Errorf("unknown undersized policy %q (want keep or reject)", s)
	}
}

// Params holds the detection thresholds. Gray levels are 0 (black) to 255.
type Params struct {
	// FillThreshold is the mean gray below which a sampled bubble counts
	// as filled.
	FillThreshold float64
	// ContourFillThreshold is the mean gray below which a blob counts as
	// ink.
	ContourFillThreshold float64
	// Isoperimetric bounds perimeter² / (π·area) of accepted blobs.
	Isoperimetric float64
	// WindowRatio sizes the sampling disc relative to the bubble radius.
	WindowRatio float64
	// MatchRatio bounds the blob to bubble distance relative to the bubble
	// radius.
	MatchRatio float64
	// SmoothSigma is the blur applied before blob extraction.
	SmoothSigma float64
	Undersized  UndersizedPolicy
}

// DefaultParams returns the thresholds used for scanned forms.
func DefaultParams() Params {
	return Params{
		FillThreshold:        150,
		ContourFillThreshold: 140,
		Isoperimetric:        28,
		WindowRatio:          1.2,
		MatchRatio:           1.3,
		SmoothSigma:          vision.DefaultSmoothSigma,
		Undersized:           UndersizedKeep,
	}
}

// Validate checks the thresholds.
func (p Params) Validate() error {
	if p.FillThreshold <= 0 || p.FillThreshold > 255 {
		return fmt.Errorf("fill threshold must be in (0,255], got %g", p.FillThreshold)
	}
	if p.ContourFillThreshold <= 0 || p.ContourFillThreshold > 255 {
		return fmt.Errorf("contour fill threshold must be in (0,255], got %g", p.ContourFillThreshold)
	}
	if p.Isoperimetric < 4 {
		return errors.New("isoperimetric constant must be at least 4")
	}
	if p.WindowRatio <= 0 || p.MatchRatio <= 0 {
		return errors.New("window and match ratios must be positive")
	}
	return nil
}
