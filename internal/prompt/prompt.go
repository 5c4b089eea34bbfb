// Package prompt assembles the single completion prompt sent per query.
package prompt

import (
	"strings"

	"statementqa/internal/domain"
)

const ruler = "_____________"

// DocumentSeparator joins retrieved chunk texts.
const DocumentSeparator = "\n---\n"

const conciseInstruction = `ROLE: You are a precise Data Assistant.

LOGIC FLOW:
1. Check DOCUMENT_CONTEXT for the answer.
2. If data is NOT available in DOCUMENT_CONTEXT and the question is generic, use web search and reply.

STRICT CONSTRAINTS:
1. Answer in 2 sentences MAXIMUM.
2. Provide the answers in sentence form only.
3. Do calculations if needed within the answer.
4. NO intro fillers (e.g., "Based on the document").
5. NO bullet points.`

const detailedInstruction = `ROLE: You are a Senior Financial Analyst.

LOGIC FLOW:
1. IF user asks for "Total Transaction Table" or similar list:
   - You MUST generate a structured Markdown Table containing Date, Description, and Amount.

2. IF user asks to DRAW/PLOT/GRAPH/VISUALIZE:
   - You MUST provide the analysis in text FIRST.
   - THEN, generate a JSON block at the very end of your response.
   - JSON Format:
     ` + "```json" + `
     {
        "chart_type": "bar",
        "data": {"Category": ["A", "B"], "Amount": [10, 20]},
        "title": "Chart Title"
     }
     ` + "```" + `
   - Supported chart_types: "bar", "line", "pie".
   - Ensure "data" keys are columns of equal length (e.g., "Category"/"Date" and "Amount").

3. IF user asks for Analysis or Generic Question:
   - Provide a comprehensive deep-dive.
   - Integrate insights from WEB_CONTEXT (e.g., market trends, definitions) with DOCUMENT_CONTEXT.

STRICT CONSTRAINTS:
1. Use "Large Points" (Bullet points with detailed explanations).
2. If performing analysis, explain your reasoning clearly.
3. For tables, ensure columns are aligned.
4. Be verbose and thorough.`

// Request is everything one prompt is built from. WebContext is the raw
// search digest; leave it empty when no search ran.
type Request struct {
	Mode       domain.Mode
	Documents  []string
	WebContext string
	Query      string
}

// Instruction returns the fixed instruction block for mode. Anything other
// than Detailed gets the Concise instruction.
func Instruction(mode domain.Mode) string {
	if mode == domain.ModeDetailed {
		return detailedInstruction
	}
	return conciseInstruction
}

// DocumentContext joins retrieved chunk texts in retrieval order.
func DocumentContext(docs []string) string {
	return strings.Join(docs, DocumentSeparator)
}

// WrapWebContext frames a search digest for the prompt.
func WrapWebContext(text string) string {
	return "\n\n--- LIVE WEB SEARCH CONTEXT ---\n" + text + "\n---\n"
}

// Compose renders the prompt. The section order and labels are fixed; an
// empty WebContext leaves the external knowledge section empty.
func Compose(req Request) string {
	web := ""
	if req.WebContext != "" {
		web = WrapWebContext(req.WebContext)
	}

	var b strings.Builder
	b.WriteString(Instruction(req.Mode))
	b.WriteString("\n\n" + ruler + "\nCONTEXT DATA (From Uploaded Statement):\n")
	b.WriteString(DocumentContext(req.Documents))
	b.WriteString("\n\n" + ruler + "\nEXTERNAL KNOWLEDGE (Web Search):\n")
	b.WriteString(web)
	b.WriteString("\n\n" + ruler + "\nUSER QUERY:\n")
	b.WriteString(req.Query)
	b.WriteString("\n\n" + ruler + "\nYOUR ANSWER:\n")
	return b.String()
}
