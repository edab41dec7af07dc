// Package tutor contains the tutoring nodes and the graph that wires them:
// classify the student's intent, retrieve relevant material, then explain,
// generate practice, build a plan, or grade an answer.
package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/studyarch/tutorflow/content"
	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
	"github.com/studyarch/tutorflow/graph"
	"github.com/studyarch/tutorflow/provider"
)

// Node ids. Routing predicates and checkpoints refer to these.
const (
	NodeIntent   = "intent"
	NodeRetrieve = "retrieve"
	NodeExplain  = "explain"
	NodePractice = "practice"
	NodePlan     = "plan"
	NodeFeedback = "feedback"
)

// artifactAwaitingAnswer marks that the last practice round has not been
// graded yet, so the next student message routes to feedback.
const artifactAwaitingAnswer = "awaiting_answer"

// historyWindow bounds how much conversation is replayed to providers.
const historyWindow = 20

// lastUserText returns the most recent student message.
func lastUserText(s *core.TutorState) string {
	entries := s.History.Tail(historyWindow)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Role == core.RoleUser {
			return entries[i].Text
		}
	}
	return ""
}

// conversation returns the recent history as provider messages.
func conversation(s *core.TutorState) []core.Message {
	from := s.History.Len() - historyWindow
	return s.History.Messages(from, s.History.Len())
}

// IntentNode classifies the student's latest message into one of the closed
// intents. Unrecognized provider output degrades to IntentGeneral rather
// than failing the run.
func IntentNode() graph.Node {
	return &graph.NodeFunc{
		NodeID: NodeIntent,
		Fn: func(ctx context.Context, s *core.TutorState, d *dispatch.Dispatcher, _ graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			res, err := d.Complete(ctx, provider.Request{
				System:    intentSystemPrompt,
				Messages:  []core.Message{core.UserMessage(lastUserText(s))},
				MaxTokens: 8,
			})
			if err != nil {
				return s, graph.Continue, fmt.Errorf("classify intent: %w", err)
			}
			switch strings.ToLower(strings.TrimSpace(res.Response.Text)) {
			case "explain":
				s.Intent = core.IntentExplain
			case "practice":
				s.Intent = core.IntentPractice
			case "plan":
				s.Intent = core.IntentPlan
			default:
				s.Intent = core.IntentGeneral
			}
			if s.Topic == "" {
				s.Topic = lastUserText(s)
			}
			return s, graph.Continue, nil
		},
	}
}

// RetrieveNode searches the content store for material matching the topic
// and records the references on the state for downstream prompts.
func RetrieveNode(store content.Store, limit int) graph.Node {
	return &graph.NodeFunc{
		NodeID: NodeRetrieve,
		Fn: func(ctx context.Context, s *core.TutorState, _ *dispatch.Dispatcher, _ graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			query := s.Topic
			if query == "" {
				query = lastUserText(s)
			}
			refs, err := store.Search(ctx, query, limit)
			if err != nil {
				return s, graph.Continue, fmt.Errorf("search content: %w", err)
			}
			s.ContentRefs = refs
			return s, graph.Continue, nil
		},
	}
}

// referenceBlock renders retrieved material into a prompt section.
func referenceBlock(ctx context.Context, store content.Store, refs []core.ContentRef) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Reference material:\n")
	for _, ref := range refs {
		item, err := store.Get(ctx, ref.ID)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", item.Title, item.Body)
	}
	return b.String()
}

// ExplainNode streams an explanation, forwarding provider chunks as visible
// fragments. The full explanation is appended to history when the stream
// finishes.
func ExplainNode(store content.Store) graph.Node {
	return &graph.NodeFunc{
		NodeID: NodeExplain,
		Fn: func(ctx context.Context, s *core.TutorState, d *dispatch.Dispatcher, emit graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			system := fmt.Sprintf(explainSystemPrompt, s.Difficulty, learningStyle(s))
			if refs := referenceBlock(ctx, store, s.ContentRefs); refs != "" {
				system += "\n\n" + refs
			}

			chunks, errs := d.Stream(ctx, provider.Request{
				System:   system,
				Messages: conversation(s),
			})

			var full strings.Builder
			for c := range chunks {
				emit(c.Text)
				full.WriteString(c.Text)
			}
			if err := <-errs; err != nil {
				return s, graph.Continue, fmt.Errorf("stream explanation: %w", err)
			}

			s.History.Append(core.RoleAssistant, full.String(), NodeExplain)
			return s, graph.Stop, nil
		},
	}
}

// PracticeNode generates practice questions in one completion and emits them
// as a single fragment. The questions are kept as an artifact so the next
// student message can be graded against them.
func PracticeNode() graph.Node {
	return &graph.NodeFunc{
		NodeID: NodePractice,
		Fn: func(ctx context.Context, s *core.TutorState, d *dispatch.Dispatcher, emit graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			res, err := d.Complete(ctx, provider.Request{
				System:   fmt.Sprintf(practiceSystemPrompt, s.Difficulty),
				Messages: conversation(s),
			})
			if err != nil {
				return s, graph.Continue, fmt.Errorf("generate practice: %w", err)
			}
			questions := res.Response.Text
			emit(questions)
			s.Artifacts["practice"] = questions
			s.Artifacts[artifactAwaitingAnswer] = "true"
			s.History.Append(core.RoleAssistant, questions, NodePractice)
			return s, graph.Stop, nil
		},
	}
}

// PlanNode produces a study plan in one completion, records it as both an
// artifact and a goal list entry, and emits it.
func PlanNode() graph.Node {
	return &graph.NodeFunc{
		NodeID: NodePlan,
		Fn: func(ctx context.Context, s *core.TutorState, d *dispatch.Dispatcher, emit graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			res, err := d.Complete(ctx, provider.Request{
				System:   fmt.Sprintf(planSystemPrompt, s.Difficulty),
				Messages: conversation(s),
			})
			if err != nil {
				return s, graph.Continue, fmt.Errorf("generate plan: %w", err)
			}
			plan := res.Response.Text
			emit(plan)
			s.Artifacts["plan"] = plan
			if s.Topic != "" {
				s.Goals = appendUnique(s.Goals, s.Topic)
			}
			s.History.Append(core.RoleAssistant, plan, NodePlan)
			return s, graph.Stop, nil
		},
	}
}

// FeedbackNode grades the student's answer to the outstanding practice
// round, adapts difficulty from the score, and emits the feedback.
func FeedbackNode() graph.Node {
	return &graph.NodeFunc{
		NodeID: NodeFeedback,
		Fn: func(ctx context.Context, s *core.TutorState, d *dispatch.Dispatcher, emit graph.EmitFunc) (*core.TutorState, graph.Decision, error) {
			prompt := fmt.Sprintf("Questions:\n%s\n\nStudent answer:\n%s",
				s.Artifacts["practice"], lastUserText(s))
			res, err := d.Complete(ctx, provider.Request{
				System:   feedbackSystemPrompt,
				Messages: []core.Message{core.UserMessage(prompt)},
			})
			if err != nil {
				return s, graph.Continue, fmt.Errorf("grade answer: %w", err)
			}

			text := res.Response.Text
			if score, rest, ok := parseScore(text); ok {
				s.AdaptDifficulty(score)
				text = rest
				if score >= 0.9 && s.Topic != "" {
					s.Completed = appendUnique(s.Completed, s.Topic)
				}
			}
			delete(s.Artifacts, artifactAwaitingAnswer)

			emit(text)
			s.History.Append(core.RoleAssistant, text, NodeFeedback)
			return s, graph.Stop, nil
		},
	}
}

// parseScore splits the grading response into its leading numeric score and
// the remaining feedback text.
func parseScore(text string) (float64, string, bool) {
	line, rest, _ := strings.Cut(strings.TrimSpace(text), "\n")
	score, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil || score < 0 || score > 1 {
		return 0, text, false
	}
	return score, strings.TrimSpace(rest), true
}

func learningStyle(s *core.TutorState) string {
	if s.LearningStyle != "" {
		return s.LearningStyle
	}
	return "mixed"
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
