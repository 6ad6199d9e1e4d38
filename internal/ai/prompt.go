package ai

import (
	"fmt"
	"strings"
)

// QuestionsPerBatch is how many questions each generation call asks for.
// It is a prompt instruction, not a hard guarantee; validation accepts any
// positive count that parses.
const QuestionsPerBatch = 10

// maxExclusionChars bounds the existing-question list injected into the
// follow-up prompt.
const maxExclusionChars = 2000

// BuildQuizPrompt produces the first-batch prompt. The output format mirrors
// the GeneratedQuestion JSON shape exactly.
func BuildQuizPrompt(text string) string {
	return fmt.Sprintf(`You are a university professor preparing an exam.

ABSOLUTE RULE: generate EXACTLY %d questions. Not 9, not 11. %d.

INSTRUCTIONS:
1. Read the text below carefully
2. Identify the %d most important concepts
3. Write 1 question per concept (= %d questions total)
4. Every question has 4 options (A, B, C, D)
5. Return ONLY the JSON, no extra text

JSON FORMAT (exact):
[
  {
    "question": "Question text...",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "answer": "EXACT text of the correct option",
    "tip": "Short explanation (max 50 words)",
    "topic": "Topic name"
  }
]

IMPORTANT: count the questions before answering. If you have more than %d, drop the last ones.

TEXT TO ANALYSE:
%s
`, QuestionsPerBatch, QuestionsPerBatch, QuestionsPerBatch, QuestionsPerBatch, QuestionsPerBatch, text)
}

// BuildFollowUpPrompt produces the incremental prompt, listing questions the
// model has already generated so it avoids repeating them.
func BuildFollowUpPrompt(text string, existing []string) string {
	exclusion := strings.Join(existing, "\n- ")
	if len(exclusion) > maxExclusionChars {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8
		// in the prompt.
		cut := maxExclusionChars
		for cut > 0 && exclusion[cut]&0xC0 == 0x80 {
			cut--
		}
		exclusion = exclusion[:cut]
	}

	return fmt.Sprintf(`You are a university lecturer.
Your task is to create %d NEW multiple-choice questions based on the provided text.

IMPORTANT:
Below is a list of questions you have ALREADY generated for this text. DO NOT REPEAT THEM. Cover different aspects or use different phrasings.
EXISTING QUESTIONS TO AVOID:
- %s (list truncated for brevity)

INSTRUCTIONS:
1. Analyse the original text.
2. Create %d NEW multiple-choice questions (4 options of similar length).
3. Return ONLY valid JSON.

JSON FORMAT:
[
  {
    "question": "New question...",
    "options": ["A", "B", "C", "D"],
    "answer": "Correct answer",
    "tip": "Explanation",
    "topic": "Topic"
  }
]

ORIGINAL TEXT:
%s
`, QuestionsPerBatch, exclusion, QuestionsPerBatch, text)
}
