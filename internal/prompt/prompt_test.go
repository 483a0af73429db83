package prompt

import (
	"love-coach-go/internal/model"
	"love-coach-go/pkg/llm"
	"strings"
	"testing"
)

func alex() *model.Target {
	return &model.Target{
		ID:                     1,
		Name:                   "Alex",
		Gender:                 "male",
		Personality:            "shy but witty",
		RelationshipContext:    "met at a climbing gym",
		RelationshipPerception: "friendly, maybe more",
		RelationshipGoals:      "go on a first date",
		RelationshipGoalsLong:  "a steady relationship",
		Language:               "English",
	}
}

func TestBuildAnalysis(t *testing.T) {
	t.Parallel()

	p, err := BuildAnalysis(AnalysisInput{Target: alex(), Conversation: "hi there"})
	if err != nil {
		t.Fatalf("BuildAnalysis: %v", err)
	}
	if !strings.Contains(p.System, "relationship coach") {
		t.Fatalf("system prompt missing persona: %q", p.System)
	}
	if !strings.Contains(p.System, "Previous analysis:\nNone\n") {
		t.Fatalf("missing prior analysis must render as None: %q", p.System)
	}
	if !strings.Contains(p.System, "Current conversation:\nhi there\n") {
		t.Fatalf("conversation not embedded: %q", p.System)
	}
	if !strings.Contains(p.System, "8.") {
		t.Fatalf("expected 8-point structure")
	}
	if p.User != "Write your entire answer in English." {
		t.Fatalf("user=%q", p.User)
	}
}

func TestBuildStrategy_EmbedsTargetAndContext(t *testing.T) {
	t.Parallel()

	p, err := BuildStrategy(StrategyInput{
		Target:       alex(),
		Analysis:     "analysis text",
		Conversation: "hi there",
	})
	if err != nil {
		t.Fatalf("BuildStrategy: %v", err)
	}
	for _, want := range []string{
		"Gender: male",
		"Personality: shy but witty",
		"Context: met at a climbing gym",
		"How the user perceives it: friendly, maybe more",
		"Short-term goals: go on a first date",
		"Long-term goals: a steady relationship",
		"Latest relationship analysis:\nanalysis text",
		"Latest conversation:\nhi there",
		"Previous strategy:\nNone",
	} {
		if !strings.Contains(p.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildReplyOptions(t *testing.T) {
	t.Parallel()

	target := alex()
	target.Language = "Français"
	p, err := BuildReplyOptions(ReplyOptionsInput{
		Target:       target,
		Analysis:     "a",
		Strategy:     "s",
		Conversation: "c",
	})
	if err != nil {
		t.Fatalf("BuildReplyOptions: %v", err)
	}
	if !strings.Contains(p.System, "exactly 4 reply options") {
		t.Fatalf("expected 4-option instruction: %q", p.System)
	}
	if !strings.Contains(p.System, "Current strategy:\ns\n") {
		t.Fatalf("strategy not embedded")
	}
	if p.User != "Write your entire answer in Français." {
		t.Fatalf("user=%q", p.User)
	}
}

func TestBuild_RequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := BuildAnalysis(AnalysisInput{}); err == nil {
		t.Fatalf("expected error for nil target")
	}
	if _, err := BuildStrategy(StrategyInput{}); err == nil {
		t.Fatalf("expected error for nil target")
	}
	if _, err := BuildReplyOptions(ReplyOptionsInput{}); err == nil {
		t.Fatalf("expected error for nil target")
	}
}

func TestPromptMessages(t *testing.T) {
	t.Parallel()

	msgs := Prompt{System: "s", User: "u"}.Messages()
	if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem || msgs[1].Role != llm.RoleUser {
		t.Fatalf("messages=%+v", msgs)
	}
}

func TestLanguageDirective_Default(t *testing.T) {
	t.Parallel()

	if got := LanguageDirective("  "); got != "Write your entire answer in English." {
		t.Fatalf("got=%q", got)
	}
}
