// Package prompts builds all language-model prompts from embedded
// text/template files.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
)

//go:embed templates/*.txt
var files embed.FS

var tmpl = template.Must(template.ParseFS(files, "templates/*.txt"))

// GeneratorSystem enforces structured JSON output on the generation path.
const GeneratorSystem = `You are a technical interview question generator.
You must respond with ONLY a valid JSON object.
No markdown. No explanation. No code blocks. Just the raw JSON object.`

// SingleGradeSystem is the system instruction for the single-prompt
// grading fallback.
const SingleGradeSystem = `You are a strict exam grading assistant.
You must respond with ONLY a valid JSON object.
No markdown. No explanation. No code blocks. No extra text.
Just the raw JSON object and nothing else.

The JSON must follow this exact schema:
{
  "score": float between 0.0 and 10.0,
  "max_score": 10,
  "grade_letter": one of "A" "B" "C" "D" "F",
  "passed": boolean (true if score >= 5.0),
  "mistakes": [ { "type": string, "description": string } ],
  "strengths": [ string ],
  "feedback": string (main summary, 1-2 sentences),
  "recommendations": [
    {
      "topic": string,
      "action": string,
      "resource_type": one of "practice" "reading" "video" "exercise"
    }
  ],
  "encouragement": string (warm, personal, 1 sentence)
}

If the student answer is perfect, mistakes should be an empty array.
If no improvements needed, recommendations should be an empty array.`

// RetryNotice is appended to a grading prompt when the previous attempt
// returned unparseable output.
const RetryNotice = "\n\nYour previous response was not valid JSON. Return ONLY the JSON object, nothing else."

// MaxHints is the hint cap per question.
const MaxHints = 3

var hintLevels = map[int]string{
	1: "Give a GENERAL direction without revealing the answer. Point toward the right concept or approach.",
	2: "Give a MORE SPECIFIC hint. Mention the key technique, data structure, or principle involved.",
	3: "Give a VERY DIRECT hint that nearly reveals the answer, but let the student connect the final dots.",
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

type questionData struct {
	Topic      string
	Difficulty string
	Category   string
	Previous   string
}

// Question builds the generation prompt for a category and modality,
// embedding previously asked questions so the model does not repeat them.
func Question(category model.Category, modality model.Modality, topic string, difficulty model.Difficulty, previous []string) (string, error) {
	prev := "None"
	if len(previous) > 0 {
		var sb strings.Builder
		for _, q := range previous {
			sb.WriteString("- " + q + "\n")
		}
		prev = strings.TrimRight(sb.String(), "\n")
	}

	data := questionData{
		Topic:      topic,
		Difficulty: string(difficulty),
		Category:   strings.ReplaceAll(string(category), "_", " "),
		Previous:   prev,
	}

	if modality == model.ModalityMultipleChoice {
		return render("question_mcq.txt", data)
	}

	name := "question_" + string(category) + ".txt"
	if tmpl.Lookup(name) == nil {
		name = "question_concept.txt"
	}
	return render(name, data)
}

type gradeData struct {
	Question      string
	CorrectAnswer string
	StudentAnswer string
}

// ScoreStage builds the scoring-stage prompt for written answers.
func ScoreStage(question, correctAnswer, studentAnswer string) (string, error) {
	return render("stage_score.txt", gradeData{question, correctAnswer, studentAnswer})
}

type feedbackWrittenData struct {
	Question      string
	CorrectAnswer string
	StudentAnswer string
	Score         string
	GradeLetter   string
}

// FeedbackWritten builds the feedback-stage prompt for written answers,
// carrying the scoring stage's result as context.
func FeedbackWritten(question, correctAnswer, studentAnswer string, score float64, gradeLetter string) (string, error) {
	return render("stage_feedback_written.txt", feedbackWrittenData{
		Question:      question,
		CorrectAnswer: correctAnswer,
		StudentAnswer: studentAnswer,
		Score:         fmt.Sprintf("%.1f", score),
		GradeLetter:   gradeLetter,
	})
}

type feedbackMCQData struct {
	Question      string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer string
	CorrectText   string
	StudentAnswer string
	StudentText   string
	Result        string
}

// FeedbackMCQ builds the feedback-stage prompt for multiple-choice answers.
func FeedbackMCQ(question string, options map[string]string, correctAnswer, studentAnswer string, passed bool) (string, error) {
	result := "INCORRECT"
	if passed {
		result = "CORRECT"
	}
	return render("stage_feedback_mcq.txt", feedbackMCQData{
		Question:      question,
		OptionA:       options["A"],
		OptionB:       options["B"],
		OptionC:       options["C"],
		OptionD:       options["D"],
		CorrectAnswer: correctAnswer,
		CorrectText:   options[strings.ToUpper(strings.TrimSpace(correctAnswer))],
		StudentAnswer: studentAnswer,
		StudentText:   options[strings.ToUpper(strings.TrimSpace(studentAnswer))],
		Result:        result,
	})
}

type reviewData struct {
	Question      string
	StudentAnswer string
	Score         string
	GradeLetter   string
	Passed        bool
	Feedback      string
}

// Review builds the review-stage prompt that produces encouragement.
func Review(question, studentAnswer string, score float64, gradeLetter string, passed bool, feedback string) (string, error) {
	return render("stage_review.txt", reviewData{
		Question:      question,
		StudentAnswer: studentAnswer,
		Score:         fmt.Sprintf("%.1f", score),
		GradeLetter:   gradeLetter,
		Passed:        passed,
		Feedback:      feedback,
	})
}

// SingleGrade builds the single-prompt grading fallback prompt.
func SingleGrade(question, correctAnswer, studentAnswer string) (string, error) {
	return render("grade_single.txt", gradeData{question, correctAnswer, studentAnswer})
}

// SimplifiedGrade builds the minimal last-attempt grading prompt.
func SimplifiedGrade(question, correctAnswer, studentAnswer string) (string, error) {
	return render("grade_simple.txt", gradeData{question, correctAnswer, studentAnswer})
}

type hintData struct {
	Question    string
	Category    string
	CodeSnippet string
	HintNumber  int
	MaxHints    int
	Level       string
}

// Hint builds the hint-generation prompt. Specificity escalates with the
// hint number.
func Hint(question string, category model.Category, hintNumber int, codeSnippet string) (string, error) {
	level, ok := hintLevels[hintNumber]
	if !ok {
		level = hintLevels[MaxHints]
	}
	return render("hint.txt", hintData{
		Question:    question,
		Category:    string(category),
		CodeSnippet: codeSnippet,
		HintNumber:  hintNumber,
		MaxHints:    MaxHints,
		Level:       level,
	})
}

// FallbackHint returns the fixed generic hint for a hint number, used when
// the model is unreachable.
func FallbackHint(hintNumber int) string {
	switch hintNumber {
	case 1:
		return "Think about what data structure or approach would be most efficient here."
	case 2:
		return "Consider breaking the problem into smaller sub-problems."
	case 3:
		return "Review the key concepts related to this topic and look for edge cases."
	default:
		return "Review the fundamentals of this topic."
	}
}
