package template

import (
	"testing"
)

var testData = TemplateData{
	Service: "TestService",
	Token:   "abcd",
	Email:   "foo@bar.com",
}

func TestInvalidKey(t *testing.T) {
	_, err := EvaluateTemplate("invalid", "email", testData)
	if err == nil {
		t.Fatal("Expected the err to be not nil")
	}
}

func TestEmailEnglish(t *testing.T) {
	result, err := EvaluateTemplate("en", "email", testData)
	if err != nil {
		t.Fatalf("Expected err to be nil: %v", err)
	}
	if result != "Your token is: abcd" {
		t.Fatalf("Unexpected body %q", result)
	}
}

func TestEmailEnglishSubject(t *testing.T) {
	result, err := EvaluateTemplate("en", "email-subject", testData)
	if err != nil {
		t.Fatalf("Expected err to be nil: %v", err)
	}
	if result != "[TestService] Authentication" {
		t.Fatalf("Unexpected subject %q", result)
	}
}
