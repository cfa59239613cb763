// Package search runs web searches and has the language model summarize the
// top results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/logger"
)

const (
	serviceName = "search"

	DefaultResults = 5
	noResultsText  = "No search results found."
)

type Result struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Provider returns up to limit results for query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Summarizer is the language model side of a search.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Summary struct {
	Query   string
	Results []Result
	Text    string
}

func (s *Summary) Empty() bool {
	return s == nil || len(s.Results) == 0
}

// Listing renders "1. title: link" lines.
func (s *Summary) Listing() string {
	lines := make([]string, 0, len(s.Results))
	for i, r := range s.Results {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, r.Title, r.Link))
	}
	return strings.Join(lines, "\n")
}

// Format renders the reply shown to the user.
func (s *Summary) Format() string {
	if s.Empty() {
		return noResultsText
	}
	return fmt.Sprintf("🔎 **AI-Powered Web Search Summary:**\n%s\n\n🌐 **Top Links:**\n%s", s.Text, s.Listing())
}

type Service struct {
	providers  []Provider
	summarizer Summarizer
	limit      int
	log        *logger.Logger
}

// NewService tries providers in order until one returns results.
func NewService(summarizer Summarizer, limit int, log *logger.Logger, providers ...Provider) *Service {
	if limit <= 0 {
		limit = DefaultResults
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{providers: providers, summarizer: summarizer, limit: limit, log: log}
}

func (s *Service) Search(ctx context.Context, query string) (*Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	results, err := s.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Query: query, Results: results}
	if summary.Empty() {
		return summary, nil
	}

	prompt := "Summarize the following search results:\n" + summary.Listing()
	text, err := s.summarizer.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	summary.Text = text
	return summary, nil
}

func (s *Service) fetch(ctx context.Context, query string) ([]Result, error) {
	if len(s.providers) == 0 {
		return nil, apperr.External(serviceName, errors.New("no search provider configured"))
	}
	var errs []error
	for _, p := range s.providers {
		results, err := p.Search(ctx, query, s.limit)
		if err != nil {
			s.log.Warn("search provider failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(results) == 0 {
			continue
		}
		if len(results) > s.limit {
			results = results[:s.limit]
		}
		return results, nil
	}
	if len(errs) == len(s.providers) {
		return nil, apperr.External(serviceName, errors.Join(errs...))
	}
	return nil, nil
}
