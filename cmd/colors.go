package cmd

import (
	"github.com/fatih/color"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// colorForScore picks green from 80, yellow from 60, red below.
func colorForScore(score float64) func(a ...interface{}) string {
	switch {
	case score >= 80:
		return colorSuccess
	case score >= 60:
		return colorWarn
	default:
		return colorError
	}
}

func colorForSeverity(s audit.Severity) func(a ...interface{}) string {
	switch s {
	case audit.SeverityHigh:
		return colorError
	case audit.SeverityMedium:
		return colorWarn
	default:
		return colorSuccess
	}
}
