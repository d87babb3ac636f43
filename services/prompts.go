package services

import (
	"strings"
	"text/template"
)

var condenseTemplate = template.Must(template.New("condense").Parse(
	`Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

Chat History:
{{.ChatHistory}}
Follow Up Input: {{.Question}}
Standalone question:`))

var qaTemplate = template.Must(template.New("qa").Parse(
	`You are an enthusiastic assistant that answers questions about a single document. Use the following pieces of context and the chat history to answer the question at the end.
If you don't know the answer, just say that you don't know. Do not make up an answer.
If the question is not related to the context, politely reply that you can only answer questions about the document.

{{range $i, $c := .Context}}{{if $i}}

{{end}}{{$c}}{{end}}

Chat History:
{{.ChatHistory}}

Question: {{.Question}}
Helpful answer in markdown:`))

type condenseInput struct {
	ChatHistory string
	Question    string
}

type qaInput struct {
	Context     []string
	ChatHistory string
	Question    string
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
