package oracle

import (
	"context"
	"strings"
	"testing"
)

func TestTemplate_Deterministic(t *testing.T) {
	req := Request{
		FunctionName: "generated_aortic_stenosis",
		SourceTitle:  "Aortic stenosis - Valvular Disease (2021)",
		Content:      "Grade | Gradient\nMild | <25",
		Structured:   true,
	}

	a, err := Template{}.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := Template{}.Generate(context.Background(), req)
	if a != b {
		t.Error("template generator must be deterministic")
	}

	if !strings.Contains(a.Code, "def generated_aortic_stenosis(") {
		t.Errorf("code missing function definition:\n%s", a.Code)
	}
	if !strings.Contains(a.Code, "NotImplementedError") {
		t.Error("skeleton must refuse to compute until reviewed")
	}
	if !strings.Contains(a.Tests, "generated_aortic_stenosis") {
		t.Error("tests must reference the function")
	}
}

func TestTemplate_KindReflectsStructure(t *testing.T) {
	narrative, _ := Template{}.Generate(context.Background(), Request{FunctionName: "f", Content: "prose"})
	if !strings.Contains(narrative.Code, "narrative") {
		t.Error("narrative source should be labeled")
	}
	structured, _ := Template{}.Generate(context.Background(), Request{FunctionName: "f", Content: "1 | 2", Structured: true})
	if !strings.Contains(structured.Code, "table") {
		t.Error("structured source should be labeled")
	}
}

func TestNewFromEnv_DefaultsToTemplate(t *testing.T) {
	t.Setenv("CARDIOKB_ORACLE", "")
	if _, ok := NewFromEnv().(Template); !ok {
		t.Error("default generator should be the offline template")
	}

	t.Setenv("CARDIOKB_ORACLE", "openai")
	if _, ok := NewFromEnv().(*OpenAI); !ok {
		t.Error("openai setting should select the API generator")
	}
}
