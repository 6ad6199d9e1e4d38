package models

// GeneratedQuestion is the shape the AI model is asked to produce.
type GeneratedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Tip      string   `json:"tip"`
	Topic    string   `json:"topic"`
}

type QuestionDTO struct {
	ID            uint     `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
	Topic         string   `json:"topic,omitempty"`
}

func (q Question) ToDTO() QuestionDTO {
	return QuestionDTO{
		ID:            q.ID,
		QuestionText:  q.QuestionText,
		Options:       q.OptionList(),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Topic:         q.Topic,
	}
}
