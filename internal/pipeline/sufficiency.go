package pipeline

import "repurchase-lab/internal/domain"

// degradationFlags collects the dataset-level degradations of one run.
// A degraded run still completes; the flags let a consumer tell a thin
// dataset's output apart from a well-fed one.
func degradationFlags(report domain.ModelReport, clusteringSkipped, anomalySkipped bool) []string {
	var flags []string
	if report.Degraded {
		flags = append(flags, domain.FlagForecastDegraded)
	}
	if clusteringSkipped {
		flags = append(flags, domain.FlagClusteringSkipped)
	}
	if anomalySkipped {
		flags = append(flags, domain.FlagAnomalySkipped)
	}
	return flags
}
