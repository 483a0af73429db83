// Package prompt 负责为提示链的各个阶段组装提示词。
package prompt

import (
	"bytes"
	"fmt"
	"love-coach-go/internal/model"
	"love-coach-go/pkg/llm"
	"strings"
	"text/template"
)

// None 是前置数据缺失时写入提示词的占位文本。
const None = "None"

// Prompt 是一次补全调用的消息对：System 为阶段提示词，User 为输出语言指令。
type Prompt struct {
	System string
	User   string
}

// Messages 转换为 llm.Client 所需的消息列表。
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.System},
		{Role: llm.RoleUser, Content: p.User},
	}
}

// AnalysisInput 是关系分析阶段的模板输入。
type AnalysisInput struct {
	Target        *model.Target
	PriorAnalysis string
	Conversation  string
}

// StrategyInput 是聊天策略阶段的模板输入。
type StrategyInput struct {
	Target        *model.Target
	Analysis      string
	Conversation  string
	PriorStrategy string
}

// ReplyOptionsInput 是回复选项阶段的模板输入。
type ReplyOptionsInput struct {
	Target       *model.Target
	Analysis     string
	Strategy     string
	Conversation string
}

const analysisTemplate = `You are an experienced relationship coach. You help the user understand the relationship between them and {{or .Target.Name "the other person"}} from the chat history they share with you.

Previous analysis:
{{.PriorAnalysis}}

Current conversation:
{{.Conversation}}

Update the previous analysis with what the current conversation reveals. Structure your answer in exactly these 8 points:
1. The dynamic of the relationship as it stands now.
2. How the user is presenting themselves in the conversation.
3. How the other person most likely perceives the user.
4. What the other person needs or wants from this interaction.
5. The user's personality as shown in the conversation.
6. The other person's personality as shown in the conversation.
7. The other person's most likely next move.
8. Concrete, actionable advice for the user's next message.`

const strategyTemplate = `You are an experienced relationship coach. Build a communication strategy the user can follow in their chat with {{or .Target.Name "the other person"}}.

About the other person:
- Gender: {{or .Target.Gender "unknown"}}
- Personality: {{or .Target.Personality "unknown"}}

About the relationship:
- Context: {{or .Target.RelationshipContext "unknown"}}
- How the user perceives it: {{or .Target.RelationshipPerception "unknown"}}
- Short-term goals: {{or .Target.RelationshipGoals "unknown"}}
- Long-term goals: {{or .Target.RelationshipGoalsLong "unknown"}}

Latest relationship analysis:
{{.Analysis}}

Latest conversation:
{{.Conversation}}

Previous strategy:
{{.PriorStrategy}}

Refine the previous strategy using the latest analysis and conversation. Explain the tone to use, the topics to lean into or avoid, and how the next few messages should move the relationship towards the goals above. Return the full strategy in the "content" field.`

const replyOptionsTemplate = `You are an experienced relationship coach. Write the user's next message to {{or .Target.Name "the other person"}}.

About the other person:
- Gender: {{or .Target.Gender "unknown"}}
- Personality: {{or .Target.Personality "unknown"}}

About the relationship:
- Context: {{or .Target.RelationshipContext "unknown"}}
- How the user perceives it: {{or .Target.RelationshipPerception "unknown"}}
- Short-term goals: {{or .Target.RelationshipGoals "unknown"}}
- Long-term goals: {{or .Target.RelationshipGoalsLong "unknown"}}

Latest relationship analysis:
{{.Analysis}}

Current strategy:
{{.Strategy}}

Latest conversation:
{{.Conversation}}

Generate exactly 4 reply options the user could send next. Each option must explore a different direction (for example playful, sincere, curious, bold) so that no two options read alike, and each must follow the current strategy. Put them in "option1", "option2", "option3" and "option4". Each field holds only the message text.`

var (
	analysisTmpl     = template.Must(template.New("analysis").Parse(analysisTemplate))
	strategyTmpl     = template.Must(template.New("strategy").Parse(strategyTemplate))
	replyOptionsTmpl = template.Must(template.New("reply_options").Parse(replyOptionsTemplate))
)

// BuildAnalysis 组装关系分析阶段的提示词。
func BuildAnalysis(in AnalysisInput) (Prompt, error) {
	if in.Target == nil {
		return Prompt{}, fmt.Errorf("prompt: analysis requires a target")
	}
	in.PriorAnalysis = orNone(in.PriorAnalysis)
	in.Conversation = orNone(in.Conversation)
	return render(analysisTmpl, in, in.Target.Language)
}

// BuildStrategy 组装聊天策略阶段的提示词。
func BuildStrategy(in StrategyInput) (Prompt, error) {
	if in.Target == nil {
		return Prompt{}, fmt.Errorf("prompt: strategy requires a target")
	}
	in.Analysis = orNone(in.Analysis)
	in.Conversation = orNone(in.Conversation)
	in.PriorStrategy = orNone(in.PriorStrategy)
	return render(strategyTmpl, in, in.Target.Language)
}

// BuildReplyOptions 组装回复选项阶段的提示词。
func BuildReplyOptions(in ReplyOptionsInput) (Prompt, error) {
	if in.Target == nil {
		return Prompt{}, fmt.Errorf("prompt: reply options requires a target")
	}
	in.Analysis = orNone(in.Analysis)
	in.Strategy = orNone(in.Strategy)
	in.Conversation = orNone(in.Conversation)
	return render(replyOptionsTmpl, in, in.Target.Language)
}

// LanguageDirective 返回作为 user 消息发送的输出语言指令。
func LanguageDirective(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf("Write your entire answer in %s.", language)
}

func render(tmpl *template.Template, data any, language string) (Prompt, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("prompt: render %s: %w", tmpl.Name(), err)
	}
	return Prompt{
		System: buf.String(),
		User:   LanguageDirective(language),
	}, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return None
	}
	return s
}
