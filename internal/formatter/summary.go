package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ytrends/internal/models"
)

var summaryHeader = []string{"PARTITION", "STATUS", "ITEMS", "DURATION", "ARTIFACT", "ERROR"}

// Summary renders a run report as a short heading plus an aligned markdown table.
func Summary(report *models.RunReport) string {
	if report == nil {
		return ""
	}

	rows := make([][]string, 0, len(report.Partitions))
	for _, p := range report.Partitions {
		rows = append(rows, []string{
			p.Key,
			string(p.Status),
			strconv.Itoa(p.Items),
			p.Duration.Round(time.Millisecond).String(),
			p.ArtifactPath,
			p.Error,
		})
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s (%s): %d partitions, %d failed, %d items\n\n",
		report.RunID, report.CaptureDate, len(report.Partitions), report.Failed(), report.TotalItems())

	sb.WriteString(strings.Join(RenderTable(summaryHeader, rows), "\n"))
	sb.WriteString("\n")

	return sb.String()
}
