package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AllowList holds the GA4 metric and dimension names a plan may reference.
type AllowList struct {
	Metrics    []string `yaml:"metrics"`
	Dimensions []string `yaml:"dimensions"`

	metricSet    map[string]bool
	dimensionSet map[string]bool
}

var defaultMetrics = []string{
	"activeUsers", "sessions", "totalUsers", "screenPageViews", "eventCount",
	"conversions", "engagementRate", "bounceRate", "sessionDuration",
	"averageSessionDuration", "sessionsPerUser", "engagedSessions",
	"userEngagementDuration", "newUsers",
}

var defaultDimensions = []string{
	"date", "pagePath", "pageTitle", "country", "city", "deviceCategory",
	"sessionSource", "sessionMedium", "sessionCampaignName", "browser",
	"operatingSystem", "dayOfWeek", "hour", "month", "year", "hostName",
}

// DefaultAllowList returns the built-in GA4 allow-list.
func DefaultAllowList() *AllowList {
	return NewAllowList(defaultMetrics, defaultDimensions)
}

func NewAllowList(metrics, dimensions []string) *AllowList {
	a := &AllowList{Metrics: metrics, Dimensions: dimensions}
	a.index()
	return a
}

// LoadAllowList reads a YAML file with "metrics" and "dimensions" keys.
// An empty path returns the built-in list; an empty section in the file
// keeps the built-in entries for that section.
func LoadAllowList(path string) (*AllowList, error) {
	if path == "" {
		return DefaultAllowList(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}
	var a AllowList
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse allow-list %s: %w", path, err)
	}
	if len(a.Metrics) == 0 {
		a.Metrics = defaultMetrics
	}
	if len(a.Dimensions) == 0 {
		a.Dimensions = defaultDimensions
	}
	a.index()
	return &a, nil
}

func (a *AllowList) index() {
	a.metricSet = make(map[string]bool, len(a.Metrics))
	for _, m := range a.Metrics {
		a.metricSet[m] = true
	}
	a.dimensionSet = make(map[string]bool, len(a.Dimensions))
	for _, d := range a.Dimensions {
		a.dimensionSet[d] = true
	}
}

func (a *AllowList) IsMetric(name string) bool    { return a.metricSet[name] }
func (a *AllowList) IsDimension(name string) bool { return a.dimensionSet[name] }

// FilterMetrics keeps allow-listed metrics, preserving order.
func (a *AllowList) FilterMetrics(names []string) []string {
	return keep(names, a.IsMetric)
}

// FilterDimensions keeps allow-listed dimensions, preserving order.
func (a *AllowList) FilterDimensions(names []string) []string {
	return keep(names, a.IsDimension)
}

func keep(names []string, allowed func(string) bool) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if allowed(n) {
			out = append(out, n)
		}
	}
	return out
}
