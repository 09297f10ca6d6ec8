package ai

import (
	"fmt"
	"strings"

	"github.com/nyayasathi/kanun/internal/model"
)

const legalSystemPrompt = `You are a legal information assistant for Nepali law. You explain laws in plain language for people without legal training.

Rules:
- Base your answer ONLY on the legal provisions supplied in the prompt.
- If the provisions do not cover the question, say so plainly.
- Do not invent article numbers, dates, or penalties.
- This is legal information, not legal advice.

Respond in this EXACT format:
**Summary**
A brief 1-2 sentence answer.

**Key Legal Point**
The most relevant provision, quoted or closely paraphrased from the supplied text.

**Explanation**
A detailed plain-language explanation.

**Next Steps**
Numbered, actionable steps the person can take.`

const classifierSystemPrompt = `You are a classifier that determines if a message is related to legal matters or is casual conversation.

Casual conversation includes:
- Greetings (hi, hello, hey, good morning, etc.)
- Thanks/gratitude (thank you, thanks, appreciate it, etc.)
- Goodbye (bye, see you, goodbye, etc.)
- Small talk (how are you, what's up, etc.)
- Acknowledgments (ok, okay, yes, no, sure, etc.)

Legal-related includes:
- Questions about laws, regulations, rights
- Legal issues, disputes, cases
- Questions about legal procedures
- Anything requiring legal information

Respond with ONLY one word: "LEGAL" or "NON_LEGAL"`

const independenceSystemPrompt = `You are an analyzer that determines if a message is independent or dependent on previous conversation.

INDEPENDENT messages:
- Introduce a completely new topic
- Can be understood without previous context
- Are self-contained questions

DEPENDENT messages:
- Reference previous discussion (pronouns like "he", "she", "it", "they", "this", "that")
- Continue or expand on previous topic
- Ask follow-up questions
- Require previous context to be understood

Respond with ONLY one word: "INDEPENDENT" or "DEPENDENT"`

const summarizerSystemPrompt = `You are a legal assistant that creates concise, clear queries for a legal information retrieval system.

Your task: Combine the conversation history with the current message to create ONE clear, self-contained legal query.

Requirements:
- Include all relevant context from the conversation
- Replace pronouns with actual entities (e.g., "he" -> "my brother")
- Keep it concise (1-3 sentences)
- Make it specific and searchable
- Focus on the legal aspect

Example:
Conversation:
Human: I had a fight with my brother over property
Assistant: [discusses property dispute laws]
Human: He is making fake allegations

Output: "My brother is making fake allegations against me in a property dispute. What are my legal rights and how should I respond?"`

const letterSystemPrompt = `You are an intelligent assistant that determines if a user's legal query requires generating a formal letter or application.

Analyze the user's query and the recommended next steps to determine:
1. Does this process require submitting a formal letter, application, or written document?
2. What type of document is needed?

Common scenarios requiring letters:
- Citizenship applications
- Property dispute complaints
- Appeals to authorities
- Registration requests
- Formal complaints to government offices
- Petitions for legal matters

Respond in this EXACT format:
REQUIRES_LETTER: YES or NO
LETTER_TYPE: [type of letter/application if YES, otherwise empty]

Examples:
Query: "I want to apply for citizenship of my daughter"
Next Steps: "1. Gather documents 2. Visit Department of Immigration"
Response:
REQUIRES_LETTER: YES
LETTER_TYPE: citizenship application

Query: "What are my property rights?"
Next Steps: "You have the right to own property..."
Response:
REQUIRES_LETTER: NO
LETTER_TYPE:`

func buildClassifierPrompt(message string) string {
	return fmt.Sprintf("%s\n\nMessage: %q\n\nClassify this message:", classifierSystemPrompt, message)
}

func buildIndependencePrompt(message string, history string) string {
	return fmt.Sprintf("%s\n\nPrevious conversation:\n%s\n\nCurrent message: %q\n\nIs the current message independent or dependent on the conversation?",
		independenceSystemPrompt, history, message)
}

func buildSummarizerPrompt(message string, history string) string {
	return fmt.Sprintf("%s\n\nConversation history:\n%s\n\nCurrent message: %q\n\nCreate a single, clear legal query:",
		summarizerSystemPrompt, history, message)
}

func buildLetterPrompt(query string, nextSteps string) string {
	return fmt.Sprintf("%s\n\nUser Query: %q\n\nRecommended Next Steps: %q\n\nAnalyze if this requires generating a formal letter or application:",
		letterSystemPrompt, query, nextSteps)
}

// FormatRAGPrompt assembles the generation prompt from the retrieved
// provisions. Chunks are numbered in retrieval order, most relevant first.
func FormatRAGPrompt(query string, chunks []model.SourceDetail) string {
	var sb strings.Builder
	sb.WriteString(legalSystemPrompt)
	sb.WriteString("\n\nRelevant legal provisions:\n\n")
	if len(chunks) == 0 {
		sb.WriteString("(no relevant provisions were found)\n")
	}
	for i, chunk := range chunks {
		sb.WriteString(fmt.Sprintf("[%d] Source: %s", i+1, chunk.File))
		if chunk.Section != "" {
			sb.WriteString(", " + chunk.Section)
		}
		sb.WriteString("\n")
		sb.WriteString(chunk.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Question: %s\n\nAnswer:", query))
	return sb.String()
}

// FormatTurns renders conversation history the way the analysis prompts
// expect it, keeping at most maxTurns of the most recent entries.
func FormatTurns(turns []model.Turn, maxTurns int) string {
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case model.RoleUser:
			lines = append(lines, "Human: "+t.Content)
		case model.RoleAssistant:
			lines = append(lines, "Chatbot: "+t.Content)
		}
	}
	return strings.Join(lines, "\n")
}
