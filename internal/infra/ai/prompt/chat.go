package prompt

import (
	"fmt"
	"strings"
)

const (
	Relevant    = "RELEVANT"
	NotRelevant = "NOT_RELEVANT"
)

// Turn is one line of conversation history.
type Turn struct {
	Sender string
	Body   string
}

// TopicCheck asks the model to answer RELEVANT or NOT_RELEVANT for message.
func TopicCheck(message string) string {
	return fmt.Sprintf(`You are a strict medical topic filter. Analyze this message: %q

Reply with "NOT_RELEVANT" if the message is about:
- General technology topics (AI, machine learning, deep learning, programming, etc.)
- Non-medical sciences, entertainment, sports, politics, news, weather
- General conversation, greetings, jokes
- Business, finance, travel, food (unless directly medical)

Reply with "RELEVANT" ONLY if the message is specifically about:
- Patient symptoms or medical conditions
- Radiology or medical imaging
- Medical treatments, procedures or medicines
- Direct patient care questions

Be very strict: if there's any doubt, reply "NOT_RELEVANT".

Response (only "RELEVANT" or "NOT_RELEVANT"):`, message)
}

// IsRelevant reads a TopicCheck reply. Anything that mentions NOT_RELEVANT,
// or does not mention RELEVANT at all, counts as off topic.
func IsRelevant(reply string) bool {
	up := strings.ToUpper(reply)
	if strings.Contains(up, NotRelevant) {
		return false
	}
	return strings.Contains(up, Relevant)
}

// Chat builds the reply prompt for a general medical question.
func Chat(message string, history []Turn) string {
	return fmt.Sprintf(`You are a STRICT medical AI assistant for a radiology platform. You MUST ONLY respond to questions about direct patient care, symptoms, medical conditions, treatments, and radiology.
If the user asks about non-medical topics, politely redirect them to medical questions.

Previous conversation:
%s
User: %s

Response Guidelines:
1. Be empathetic and clear about medical topics only
2. Use simple language for medical information
3. Include medical disclaimers for health advice
4. Encourage professional medical consultation
5. Never provide emergency medical advice

Assistant:`, formatHistory(history), message)
}

// ScanInfo is the scan context shown to the model.
type ScanInfo struct {
	ID             string
	Modality       string
	UploadedAt     string
	Description    string
	Analyzed       bool
	Classification string
	Confidence     float64
	RiskLevel      string
	Abnormalities  []string
	Explanation    string
}

// ScanChat builds the reply prompt for a question about one scan.
func ScanChat(message string, scan ScanInfo, history []Turn) string {
	var b strings.Builder
	b.WriteString("You are a SPECIALIZED medical AI assistant for a radiology platform with access to specific scan analysis results.\n\n")
	b.WriteString("SCAN CONTEXT:\n")
	fmt.Fprintf(&b, "- Scan ID: %s\n- Modality: %s\n- Date: %s\n", scan.ID, modalityLabel(scan.Modality), scan.UploadedAt)
	desc := scan.Description
	if desc == "" {
		desc = "No description provided"
	}
	fmt.Fprintf(&b, "- Description: %s\n- AI Analyzed: %t\n\n", desc, scan.Analyzed)

	if scan.Analyzed {
		abn := "None detected"
		if len(scan.Abnormalities) > 0 {
			abn = strings.Join(scan.Abnormalities, "; ")
		}
		b.WriteString("AI ANALYSIS RESULTS:\n")
		fmt.Fprintf(&b, "- Disease Classification: %s\n", scan.Classification)
		fmt.Fprintf(&b, "- Confidence Score: %.2f\n", scan.Confidence)
		fmt.Fprintf(&b, "- Risk Level: %s\n", scan.RiskLevel)
		fmt.Fprintf(&b, "- Detected Abnormalities: %s\n", abn)
		fmt.Fprintf(&b, "- AI Explanation: %s\n\n", scan.Explanation)
	} else {
		b.WriteString("AI ANALYSIS: This scan has not been analyzed by AI yet.\n\n")
	}

	fmt.Fprintf(&b, "CONVERSATION HISTORY:\n%s\n", formatHistory(history))
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", message)
	b.WriteString(`INSTRUCTIONS:
1. Use the scan analysis results to provide context-aware responses
2. Reference specific findings from this scan when relevant
3. Explain medical terms in simple language
4. If the scan hasn't been analyzed, suggest getting it analyzed first
5. Focus only on medical/radiology topics related to this scan
6. Always include appropriate medical disclaimers

Respond in a helpful, clear, and medical-appropriate manner:`)
	return b.String()
}

func formatHistory(history []Turn) string {
	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Sender, t.Body)
	}
	return b.String()
}
