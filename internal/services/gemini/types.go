package gemini

import "strings"

// Request is the body of a generateContent call
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of a conversation
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part holds exactly one of text, a function call or a function response
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation requested by the model
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// FunctionResponse returns a tool result to the model
type FunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// Tool declares callable functions or enables search grounding
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *struct{}             `json:"google_search,omitempty"`
}

// FunctionDeclaration describes one function the model may call
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Schema is the OpenAPI subset used for function parameters
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// GenerationConfig tunes sampling and output format
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

// Candidate is one generated answer
type Candidate struct {
	Content Content `json:"content"`
}

// Response is the body returned by generateContent
type Response struct {
	Candidates []Candidate `json:"candidates"`
	Error      *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// UserText builds a user turn holding plain text
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// ModelText builds a model turn holding plain text
func ModelText(text string) Content {
	return Content{Role: "model", Parts: []Part{{Text: text}}}
}

// Message returns the content of the first candidate
func (r *Response) Message() (Content, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return Content{}, false
	}
	return r.Candidates[0].Content, true
}

// Text joins the text parts of the first candidate
func (r *Response) Text() string {
	message, ok := r.Message()
	if !ok {
		return ""
	}
	var parts []string
	for _, part := range message.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "")
}

// FunctionCalls lists the tool invocations of the first candidate
func (r *Response) FunctionCalls() []FunctionCall {
	message, ok := r.Message()
	if !ok {
		return nil
	}
	var calls []FunctionCall
	for _, part := range message.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}
