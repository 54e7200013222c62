package news

// SourceDescriptor is a statically configured feed. Intelligence sources
// also carry a type tag and topic/region hints.
type SourceDescriptor struct {
	Name     string   `yaml:"name" json:"name"`
	URL      string   `yaml:"url" json:"url"`
	Category string   `yaml:"category" json:"category"`
	Type     string   `yaml:"type,omitempty" json:"type,omitempty"`
	Topics   []string `yaml:"topics,omitempty" json:"topics,omitempty"`
	Region   string   `yaml:"region,omitempty" json:"region,omitempty"`
}

// IsIntel reports whether the descriptor carries intelligence hints.
func (s SourceDescriptor) IsIntel() bool {
	return s.Type != "" || len(s.Topics) > 0
}

// CategoryQuery maps a category to the search text sent to the structured
// news API.
type CategoryQuery struct {
	Category string `yaml:"category" json:"category"`
	Query    string `yaml:"query" json:"query"`
}
