package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"jarvis/internal/storage"
)

const (
	topWordsLimit  = 5
	minTopWordRune = 3
)

// DailyStats summarises the interactions of one calendar day.
type DailyStats struct {
	Date              string      `json:"date"`
	TotalInteractions int         `json:"total_interactions"`
	EmptyResponses    int         `json:"empty_responses"`
	AvgUserChars      float64     `json:"avg_user_chars"`
	AvgResponseChars  float64     `json:"avg_response_chars"`
	TopWords          []WordCount `json:"top_words"`
}

// WordCount is how often a word occurred in user inputs.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// AnalyzeDaily counts the interactions whose timestamp falls on the day of
// targetDate, in targetDate's location.
func AnalyzeDaily(interactions []storage.Interaction, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:     startOfDay.Format("2006-01-02"),
		TopWords: []WordCount{},
	}

	var userChars, respChars int
	words := make(map[string]int)
	for _, it := range interactions {
		if it.Timestamp.Before(startOfDay) || !it.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalInteractions++
		userChars += utf8.RuneCountInString(it.UserInput)
		respChars += utf8.RuneCountInString(it.AIResponse)
		if strings.TrimSpace(it.AIResponse) == "" {
			stats.EmptyResponses++
		}
		for _, w := range strings.Fields(strings.ToLower(it.UserInput)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if utf8.RuneCountInString(w) >= minTopWordRune {
				words[w]++
			}
		}
	}

	if stats.TotalInteractions > 0 {
		stats.AvgUserChars = float64(userChars) / float64(stats.TotalInteractions)
		stats.AvgResponseChars = float64(respChars) / float64(stats.TotalInteractions)
	}

	for w, c := range words {
		stats.TopWords = append(stats.TopWords, WordCount{Word: w, Count: c})
	}
	sort.Slice(stats.TopWords, func(i, j int) bool {
		if stats.TopWords[i].Count != stats.TopWords[j].Count {
			return stats.TopWords[i].Count > stats.TopWords[j].Count
		}
		return stats.TopWords[i].Word < stats.TopWords[j].Word
	})
	if len(stats.TopWords) > topWordsLimit {
		stats.TopWords = stats.TopWords[:topWordsLimit]
	}
	return stats
}

// GenerateReportSummary renders the stats as a short plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Jarvis memory report for %s:\n", ds.Date)
	fmt.Fprintf(&sb, "- Interactions: %d\n", ds.TotalInteractions)
	fmt.Fprintf(&sb, "- Empty responses: %d\n", ds.EmptyResponses)
	fmt.Fprintf(&sb, "- Avg user input: %.1f chars\n", ds.AvgUserChars)
	fmt.Fprintf(&sb, "- Avg response: %.1f chars\n", ds.AvgResponseChars)
	if len(ds.TopWords) > 0 {
		sb.WriteString("Top words:\n")
		for _, wc := range ds.TopWords {
			fmt.Fprintf(&sb, "- %s: %d\n", wc.Word, wc.Count)
		}
	}
	return sb.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
