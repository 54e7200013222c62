package enrich

import "strings"

// Alert severities, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityElevated = "elevated"
)

// Taxonomy handles keyword matching for topics, regions and alerts.
// Every table keeps its declaration order; region and alert detection
// return the first match in that order.
type Taxonomy struct {
	topics  []keywordGroup
	regions []keywordGroup
	alerts  []alertKeyword
}

type keywordGroup struct {
	name     string
	keywords []string // lowercase
}

type alertKeyword struct {
	keyword  string
	lower    string
	severity string
}

// Alert is the outcome of alert detection on a title.
type Alert struct {
	IsAlert  bool
	Keyword  string
	Severity string
}

// NewTaxonomy creates an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{}
}

// AddTopic appends a topic, or replaces the keywords of an existing one in
// place.
func (t *Taxonomy) AddTopic(name string, keywords []string) {
	t.topics = upsertGroup(t.topics, name, keywords)
}

// AddRegion appends a region, or replaces the keywords of an existing one in
// place.
func (t *Taxonomy) AddRegion(name string, keywords []string) {
	t.regions = upsertGroup(t.regions, name, keywords)
}

// AddAlert appends an alert keyword.
func (t *Taxonomy) AddAlert(keyword, severity string) {
	if strings.TrimSpace(keyword) == "" {
		return
	}
	if severity == "" {
		severity = SeverityElevated
	}
	t.alerts = append(t.alerts, alertKeyword{
		keyword:  keyword,
		lower:    strings.ToLower(keyword),
		severity: severity,
	})
}

func upsertGroup(groups []keywordGroup, name string, keywords []string) []keywordGroup {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		normalized = append(normalized, strings.ToLower(kw))
	}

	for i := range groups {
		if groups[i].name == name {
			groups[i].keywords = normalized
			return groups
		}
	}
	return append(groups, keywordGroup{name: name, keywords: normalized})
}

// Topics returns every topic with at least one keyword in text, in
// declaration order.
func (t *Taxonomy) Topics(text string) []string {
	out := []string{}
	if text == "" {
		return out
	}

	lower := strings.ToLower(text)
	for _, g := range t.topics {
		if g.matches(lower) {
			out = append(out, g.name)
		}
	}
	return out
}

// Region returns the first region in declaration order with a keyword in
// text, or "".
func (t *Taxonomy) Region(text string) string {
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)
	for _, g := range t.regions {
		if g.matches(lower) {
			return g.name
		}
	}
	return ""
}

// Regions returns every matching region in declaration order.
func (t *Taxonomy) Regions(text string) []string {
	out := []string{}
	lower := strings.ToLower(text)
	for _, g := range t.regions {
		if g.matches(lower) {
			out = append(out, g.name)
		}
	}
	return out
}

// Alert scans title for the first alert keyword.
func (t *Taxonomy) Alert(title string) Alert {
	if title == "" {
		return Alert{}
	}

	lower := strings.ToLower(title)
	for _, a := range t.alerts {
		if strings.Contains(lower, a.lower) {
			return Alert{IsAlert: true, Keyword: a.keyword, Severity: a.severity}
		}
	}
	return Alert{}
}

// TopicNames lists the configured topics in order.
func (t *Taxonomy) TopicNames() []string {
	return groupNames(t.topics)
}

// RegionNames lists the configured regions in order.
func (t *Taxonomy) RegionNames() []string {
	return groupNames(t.regions)
}

func (g keywordGroup) matches(lower string) bool {
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func groupNames(groups []keywordGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.name
	}
	return names
}
