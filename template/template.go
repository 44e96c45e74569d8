package template

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

type TemplateData struct {
	Service string
	Token   string
	Email   string
}

var templates = map[string]string{
	"en:email":         `Your token is: {{.Token}}`,
	"en:email-subject": "[{{.Service}}] Authentication",
}

// EvaluateTemplate renders the built-in plain text template `lang:id`.
func EvaluateTemplate(lang string, id string, data TemplateData) (string, error) {
	key := fmt.Sprintf("%s:%s", lang, id)
	textTemplate, ok := templates[key]
	if !ok {
		return "", errors.New("No such template")
	}
	parsedTemplate, err := template.New(key).Parse(textTemplate)
	if err != nil {
		return "", err
	}
	sBuilder := &strings.Builder{}
	err = parsedTemplate.Execute(sBuilder, data)
	if err != nil {
		return "", err
	}
	return sBuilder.String(), nil
}
