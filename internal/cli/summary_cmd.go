// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// summary_cmd.go - The summary command.

package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/analytics"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/util"
)

// barWidth is the widest bar drawn in the daily activity chart.
const barWidth = 30

// SummaryReport is the JSON form of the summary command.
type SummaryReport struct {
	Summary analytics.Summary `json:"summary"`
	Trends  *analytics.Trends `json:"trends,omitempty"`
}

// HandleSummary prints the analytics summary, plus daily trends when --days
// is set.
func (a *App) HandleSummary(args Args) error {
	summary, err := a.Aggregator.ComputeSummary(a.ctx())
	if err != nil {
		return NewCommandError("summary", "compute", err)
	}

	report := SummaryReport{Summary: summary}
	if args.Days > 0 {
		trends, err := a.Aggregator.ComputeTrends(a.ctx(), args.Days, a.now())
		if err != nil {
			return NewCommandError("summary", "trends", err)
		}
		report.Trends = &trends
	}

	if a.JSON {
		return a.writeJSON(CmdSummary, report)
	}
	a.renderSummary(report)
	return nil
}

func (a *App) renderSummary(r SummaryReport) {
	s := r.Summary

	a.println(TitleStyle.Render("Cosmos Analytics Summary"))
	a.println(RenderField("Page views", s.TotalPageViews))
	a.println(RenderField("Unique visitors", s.UniqueVisitors))
	a.println(RenderField("Avg session duration", formatSeconds(s.AverageSessionDuration)))
	a.println(RenderField("Bounce rate", RenderPercent(s.BounceRate)))
	a.println(RenderField("Return visitor rate", RenderPercent(s.ReturnVisitorRate)))
	a.println(RenderField("Classifications", s.ClassificationStats.Total))

	a.println(SectionStyle.Render("Top observations"))
	if len(s.TopObservations) == 0 {
		a.println(DimStyle.Render("  none"))
	}
	for i, o := range s.TopObservations {
		name := o.Name
		if name == "" {
			name = o.ID
		}
		a.printf("  %2d. %s %s\n", i+1,
			util.PadRight(util.TruncateWidth(name, 36), 36),
			ValueStyle.Render(fmt.Sprintf("%d", o.Count)))
	}

	a.println(SectionStyle.Render("Top search terms"))
	if len(s.TopSearchTerms) == 0 {
		a.println(DimStyle.Render("  none"))
	}
	for i, t := range s.TopSearchTerms {
		a.printf("  %2d. %s %s\n", i+1,
			util.PadRight(util.TruncateWidth(t.Term, 36), 36),
			ValueStyle.Render(fmt.Sprintf("%d", t.Count)))
	}

	if len(s.ClassificationStats.ByType) > 0 {
		a.println(SectionStyle.Render("Classifications by project"))
		projects := make([]string, 0, len(s.ClassificationStats.ByType))
		for p := range s.ClassificationStats.ByType {
			projects = append(projects, p)
		}
		sort.Strings(projects)
		for _, p := range projects {
			a.printf("      %s %d\n", util.PadRight(util.TruncateWidth(p, 36), 36), s.ClassificationStats.ByType[p])
		}
	}

	if r.Trends != nil {
		a.renderTrends(*r.Trends)
	}
}

func (a *App) renderTrends(t analytics.Trends) {
	a.println(SectionStyle.Render(fmt.Sprintf("Daily activity (last %d days)", t.Days)))
	if len(t.Daily) == 0 {
		a.println(DimStyle.Render("  no activity"))
		return
	}

	peak := 0
	for _, d := range t.Daily {
		if d.Events > peak {
			peak = d.Events
		}
	}
	for _, d := range t.Daily {
		n := d.Events * barWidth / peak
		if n == 0 {
			n = 1
		}
		a.printf("  %s %s %s\n",
			d.Date.Format("2006-01-02"),
			BarStyle.Render(util.PadRight(strings.Repeat("#", n), barWidth)),
			DimStyle.Render(fmt.Sprintf("%d events, %d views, %d sessions", d.Events, d.PageViews, d.Sessions)))
	}
}

// formatSeconds renders a duration in seconds the way humans read it.
func formatSeconds(secs float64) string {
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", secs)
	}
	return d.String()
}
