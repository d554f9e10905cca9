package services

import (
	"fmt"
	"strings"

	"certquiz/internal/models"
)

const (
	vietnameseInstruction = "Vui lòng trả lời bằng tiếng Việt."
	englishInstruction    = "Please respond in English."

	explanationStructureVI = `## Giải thích câu hỏi
Phân tích yêu cầu chính của câu hỏi, xác định các điểm mấu chốt cần chú ý.

## Giải thích đáp án đúng
Tại sao đáp án %s là đúng? Giải thích chi tiết cách nó đáp ứng yêu cầu của câu hỏi.

## Tại sao không chọn các đáp án khác
Phân tích từng đáp án sai, giải thích lý do tại sao chúng không phù hợp hoặc không tối ưu.

## Các lỗi thường gặp (Common Mistakes)
Liệt kê các lỗi mà thí sinh hay mắc phải khi gặp dạng câu hỏi này.

## Mẹo để nhớ (Tips to Remember)
Cung cấp các mẹo, tricks hoặc cách nhớ nhanh để áp dụng cho các câu hỏi tương tự.`

	explanationStructureEN = `## Question Analysis
Analyze the main requirements of the question and identify the key points to focus on.

## Correct Answer Explanation
Why is answer %s correct? Explain in detail how it meets the question's requirements.

## Why Other Answers Are Wrong
Analyze each incorrect answer and explain why they are not suitable or not optimal.

## Common Mistakes
List the mistakes that students often make when encountering this type of question.

## Tips to Remember
Provide tips, tricks, or memorization techniques to apply to similar questions.`

	theoryStructureVI = `## Cơ sở lý thuyết các thuật ngữ trong câu hỏi

Liệt kê và giải thích TẤT CẢ các AWS services, concepts, và thuật ngữ kỹ thuật được đề cập trong câu hỏi.

Định dạng cho mỗi thuật ngữ:
- **Tên thuật ngữ** (in đậm, không có dấu hai chấm)
- Giải thích ngắn gọn và đầy đủ về thuật ngữ đó (trên dòng mới)

## Cơ sở lý thuyết các thuật ngữ trong đáp án

Liệt kê và giải thích TẤT CẢ các AWS services, concepts, và thuật ngữ kỹ thuật xuất hiện trong các đáp án (A, B, C, D).

Định dạng cho mỗi thuật ngữ:
- **Tên thuật ngữ** (in đậm, không có dấu hai chấm)
- Giải thích ngắn gọn và đầy đủ về thuật ngữ đó (trên dòng mới)

QUAN TRỌNG: KHÔNG dùng dấu hai chấm (:) sau tên thuật ngữ.`

	theoryStructureEN = `## Theoretical Foundation of Question Terms

List and explain ALL AWS services, concepts, and technical terms mentioned in the question.

Format for each term:
- **Term name** (bold, NO colon)
- Concise but thorough explanation (on new line)

## Theoretical Foundation of Answer Terms

List and explain ALL AWS services, concepts, and technical terms appearing in the answers (A, B, C, D).

Format for each term:
- **Term name** (bold, NO colon)
- Concise but thorough explanation (on new line)

IMPORTANT: Do NOT use colons (:) after term names.`
)

// FormatOptions renders question options one per line, in display order.
func FormatOptions(options []string) string {
	return strings.Join(options, "\n")
}

// BuildExplanationPrompt builds the answer-explanation prompt for a question
// in the requested language.
func BuildExplanationPrompt(q *models.Question, language models.Language) string {
	languageInstruction := englishInstruction
	structure := fmt.Sprintf(explanationStructureEN, q.CorrectAnswer)
	if language == models.LanguageVietnamese {
		languageInstruction = vietnameseInstruction
		structure = fmt.Sprintf(explanationStructureVI, q.CorrectAnswer)
	}

	return fmt.Sprintf(`You are an AWS Solutions Architect expert. Analyze this SAA-C03 exam question.

Question: %s

Options:
%s

Correct Answer: %s

%s

IMPORTANT: Start directly with the analysis. Do NOT include any greetings, introductions (like "Chào bạn, là một chuyên gia..." or "Hello, as an expert..."), or conclusions. Go straight to the structured content below.

Provide a comprehensive explanation covering:

%s

Keep the explanation structured and easy to understand (max 500 words).`,
		q.Question, FormatOptions(q.Options), q.CorrectAnswer, languageInstruction, structure)
}

// BuildTheoryPrompt builds the theoretical-foundation prompt for a question
// in the requested language.
func BuildTheoryPrompt(q *models.Question, language models.Language) string {
	languageInstruction := englishInstruction
	structure := theoryStructureEN
	if language == models.LanguageVietnamese {
		languageInstruction = vietnameseInstruction
		structure = theoryStructureVI
	}

	return fmt.Sprintf(`You are an AWS Solutions Architect expert. Provide theoretical foundation for this question.

Question: %s

Options:
%s

%s

IMPORTANT: Start directly with the theoretical content. Do NOT include any greetings, introductions (like "Chào bạn, là một chuyên gia..."), or conclusions. Go straight to the structured content below.

Provide a comprehensive theoretical breakdown:

%s

Keep the theory organized and easy to reference (max 500 words).`,
		q.Question, FormatOptions(q.Options), languageInstruction, structure)
}

// BuildPrompt builds the prompt for the given content kind.
func BuildPrompt(kind models.ContentKind, q *models.Question, language models.Language) string {
	if kind == models.ContentTheory {
		return BuildTheoryPrompt(q, language)
	}
	return BuildExplanationPrompt(q, language)
}
