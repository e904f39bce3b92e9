package cli

import (
	"github.com/labrat/labrat/internal/engine"
)

var (
	confidenceLevel float64
	minSampleSize   int
	minConversions  int
)

func init() {
	defaults := engine.DefaultConfig()
	rootCmd.PersistentFlags().Float64Var(&confidenceLevel, "confidence", defaults.ConfidenceLevel, "confidence level for Wilson intervals")
	rootCmd.PersistentFlags().IntVar(&minSampleSize, "min-sample", defaults.MinSampleSize, "minimum assigned users per variant before significance testing")
	rootCmd.PersistentFlags().IntVar(&minConversions, "min-conversions", defaults.MinConversions, "minimum conversions per variant before significance testing")
}

func engineConfig() engine.Config {
	return engine.Config{
		ConfidenceLevel: confidenceLevel,
		MinSampleSize:   minSampleSize,
		MinConversions:  minConversions,
	}
}
