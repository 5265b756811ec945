// Package batch runs a list of questions through the dispatcher and writes a
// result report.
package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Dispatcher is the subset of the handler the batch runner needs
type Dispatcher interface {
	Handle(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome for one question
type Result struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Processor collects per-question results and writes reports
type Processor struct {
	OutputPath string
	Results    []Result
}

// NewProcessor creates a processor. An empty outputPath gets a timestamped
// default in the working directory.
func NewProcessor(outputPath string) *Processor {
	if outputPath == "" {
		outputPath = fmt.Sprintf("batch_results_%s", time.Now().Format("20060102_150405"))
	}
	return &Processor{OutputPath: outputPath}
}

// ReadQuestions loads a question list from a txt, json, or csv file
func ReadQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONQuestions(data)
	case ".csv":
		return parseCSVQuestions(data)
	default:
		return parseTxtQuestions(data), nil
	}
}

// parseTxtQuestions: one question per line, blank lines and # comments skipped
func parseTxtQuestions(data []byte) []string {
	var questions []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	return questions
}

// parseJSONQuestions accepts {"questions": [...]}, a string array, or an
// array of {"question": ...} objects.
func parseJSONQuestions(data []byte) ([]string, error) {
	var wrapped struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Questions != nil {
		return wrapped.Questions, nil
	}

	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var objects []struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(data, &objects); err == nil && len(objects) > 0 {
		questions := make([]string, 0, len(objects))
		for _, obj := range objects {
			if obj.Question != "" {
				questions = append(questions, obj.Question)
			}
		}
		if len(questions) > 0 {
			return questions, nil
		}
	}

	return nil, fmt.Errorf(`unsupported JSON question format: expected {"questions": [...]}, ["..."], or [{"question": "..."}]`)
}

// parseCSVQuestions takes the first column, skipping the header row
func parseCSVQuestions(data []byte) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	var questions []string
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) > 0 && strings.TrimSpace(record[0]) != "" {
			questions = append(questions, strings.TrimSpace(record[0]))
		}
	}
	return questions, nil
}

// Run processes each question in order, collecting answers and errors
func (p *Processor) Run(ctx context.Context, questions []string, dispatcher Dispatcher) {
	for i, question := range questions {
		fmt.Printf("Processing question %d/%d...\n", i+1, len(questions))
		answer, err := dispatcher.Handle(ctx, question)
		if err != nil {
			p.add(question, "", err.Error())
			continue
		}
		p.add(question, answer, "")
	}
}

func (p *Processor) add(question, answer, errMsg string) {
	p.Results = append(p.Results, Result{
		Question:  question,
		Answer:    answer,
		Error:     errMsg,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Save writes the results in the requested format ("txt", "json", or "md")
// and returns the output path.
func (p *Processor) Save(format string) (string, error) {
	switch format {
	case "txt", "":
		return p.saveTxt()
	case "json":
		return p.saveJSON()
	case "md":
		return p.saveMarkdown()
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func (p *Processor) succeeded() int {
	n := 0
	for _, r := range p.Results {
		if r.Error == "" {
			n++
		}
	}
	return n
}

func (p *Processor) saveTxt() (string, error) {
	path := withSuffix(p.OutputPath, ".txt")
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "%s\nBatch results\nGenerated: %s\nTotal: %d\nSucceeded: %d\nFailed: %d\n%s\n",
		rule, time.Now().Format("2006-01-02 15:04:05"),
		len(p.Results), p.succeeded(), len(p.Results)-p.succeeded(), rule)

	for i, r := range p.Results {
		fmt.Fprintf(&b, "\n%s\nQuestion #%d\n%s\n\n%s\n\n", rule, i+1, rule, r.Question)
		if r.Error != "" {
			fmt.Fprintf(&b, "Error:\n%s\n\n", r.Error)
		} else {
			fmt.Fprintf(&b, "Answer:\n%s\n\n", r.Answer)
		}
		fmt.Fprintf(&b, "Time: %s\n", r.Timestamp)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}

func (p *Processor) saveJSON() (string, error) {
	path := withSuffix(p.OutputPath, ".json")

	report := map[string]any{
		"metadata": map[string]any{
			"generated_at": time.Now().Format(time.RFC3339),
			"total":        len(p.Results),
			"success":      p.succeeded(),
			"failed":       len(p.Results) - p.succeeded(),
		},
		"results": p.Results,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}

func (p *Processor) saveMarkdown() (string, error) {
	path := withSuffix(p.OutputPath, ".md")
	var b strings.Builder

	fmt.Fprintf(&b, "# Batch results\n\n**Generated:** %s\n\n**Total:** %d\n\n**Succeeded:** %d\n\n**Failed:** %d\n\n---\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(p.Results), p.succeeded(), len(p.Results)-p.succeeded())

	for i, r := range p.Results {
		fmt.Fprintf(&b, "## Question #%d\n\n```\n%s\n```\n\n", i+1, r.Question)
		if r.Error != "" {
			fmt.Fprintf(&b, "**Error:**\n\n```\n%s\n```\n\n", r.Error)
		} else {
			fmt.Fprintf(&b, "**Answer:**\n\n%s\n\n", r.Answer)
		}
		fmt.Fprintf(&b, "*Time: %s*\n\n---\n\n", r.Timestamp)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}

// PrintSummary prints a colored completion summary listing any failures
func (p *Processor) PrintSummary() {
	total := len(p.Results)
	success := p.succeeded()
	failed := total - success

	green := color.New(color.FgGreen, color.Bold)
	green.Println("\nBatch processing complete!")
	fmt.Printf("Total: %d | Succeeded: %d | Failed: %d\n", total, success, failed)

	if failed > 0 {
		yellow := color.New(color.FgYellow)
		yellow.Println("\nFailed questions:")
		for i, r := range p.Results {
			if r.Error == "" {
				continue
			}
			question := r.Question
			if len(question) > 50 {
				question = question[:50] + "..."
			}
			fmt.Printf("  %d. %s\n     error: %s\n", i+1, question, r.Error)
		}
	}
}

func withSuffix(path, suffix string) string {
	if ext := filepath.Ext(path); ext != "" {
		path = strings.TrimSuffix(path, ext)
	}
	return path + suffix
}
