package model

// NewsItem is one scored news article about a company.
type NewsItem struct {
	Title       string  `json:"title" yaml:"title"`
	URL         string  `json:"url" yaml:"url"`
	SourceName  string  `json:"source" yaml:"source"`
	PublishedAt string  `json:"date,omitempty" yaml:"date,omitempty"`
	Content     string  `json:"content" yaml:"content"`
	Relevance   float64 `json:"relevance" yaml:"relevance"`
}
