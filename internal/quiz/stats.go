package quiz

import (
	"math"
	"sort"

	"github.com/gburiasco/UneedesAI/internal/models"
)

// fallbackTopic groups questions the model left untagged.
const fallbackTopic = "General"

type TopicStat struct {
	Topic    string `json:"topic"`
	Answered int    `json:"answered"`
	Correct  int    `json:"correct"`
	Percent  int    `json:"percent"`
}

// Stats summarizes quiz progress. Score is round(100 * correct / answered):
// unanswered questions do not drag the percentage down.
type Stats struct {
	Total     int         `json:"total"`
	Answered  int         `json:"answered"`
	Correct   int         `json:"correct"`
	Score     int         `json:"score"`
	Topics    []TopicStat `json:"topics"`
	Strongest string      `json:"strongest_topic,omitempty"`
	Weakest   string      `json:"weakest_topic,omitempty"`
}

// ComputeStats derives progress figures from questions and the user's
// answers. Only topics with at least one answered question are reported.
// Strongest/weakest pick max/min topic percentage; ties break alphabetically.
func ComputeStats(questions []models.Question, answers []models.UserAnswer) Stats {
	byQuestion := make(map[uint]models.UserAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	stats := Stats{Total: len(questions)}
	perTopic := make(map[string]*TopicStat)

	for _, q := range questions {
		answer, answered := byQuestion[q.ID]
		if !answered {
			continue
		}

		topic := q.Topic
		if topic == "" {
			topic = fallbackTopic
		}
		ts, ok := perTopic[topic]
		if !ok {
			ts = &TopicStat{Topic: topic}
			perTopic[topic] = ts
		}

		stats.Answered++
		ts.Answered++
		if answer.IsCorrect {
			stats.Correct++
			ts.Correct++
		}
	}

	if stats.Answered > 0 {
		stats.Score = roundPercent(stats.Correct, stats.Answered)
	}

	topics := make([]TopicStat, 0, len(perTopic))
	for _, ts := range perTopic {
		ts.Percent = roundPercent(ts.Correct, ts.Answered)
		topics = append(topics, *ts)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Topic < topics[j].Topic })
	stats.Topics = topics

	for _, ts := range topics {
		// The slice is in alphabetical order, so strict comparisons keep the
		// first topic of any tie.
		if stats.Strongest == "" || ts.Percent > percentOf(topics, stats.Strongest) {
			stats.Strongest = ts.Topic
		}
		if stats.Weakest == "" || ts.Percent < percentOf(topics, stats.Weakest) {
			stats.Weakest = ts.Topic
		}
	}

	return stats
}

func percentOf(topics []TopicStat, topic string) int {
	for _, ts := range topics {
		if ts.Topic == topic {
			return ts.Percent
		}
	}
	return 0
}

func roundPercent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}
